package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kalamitra/backend/internal/models"
)

// insufficient_privilege, the class postgres raises when row security or
// grants reject a statement.
const pgPermissionDenied = "42501"

// Gorm is the postgres-backed Store.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// translate maps driver errors onto the store's error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgPermissionDenied {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
	}
	return err
}

func (g *Gorm) EnsureAggregate(ctx context.Context, ref models.Ref) error {
	agg := models.Aggregate{
		Kind:           ref.Kind,
		ParentID:       ref.ParentID,
		PostID:         ref.PostID,
		ReactionCounts: models.ReactionCounts{},
	}
	return translate(g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&agg).Error)
}

func (g *Gorm) GetAggregate(ctx context.Context, ref models.Ref) (models.Aggregate, error) {
	var agg models.Aggregate
	err := g.db.WithContext(ctx).
		Where("kind = ? AND parent_id = ? AND post_id = ?", ref.Kind, ref.ParentID, ref.PostID).
		First(&agg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Aggregate{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return models.Aggregate{}, translate(err)
	}
	if agg.ReactionCounts == nil {
		agg.ReactionCounts = models.ReactionCounts{}
	}
	return agg, nil
}

func (g *Gorm) GetVote(ctx context.Context, ref models.Ref, userID int) (*models.VoteValue, error) {
	var rec models.VoteRecord
	err := g.db.WithContext(ctx).
		Where("kind = ? AND parent_id = ? AND post_id = ? AND user_id = ?", ref.Kind, ref.ParentID, ref.PostID, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	v := rec.Value
	return &v, nil
}

func (g *Gorm) GetReaction(ctx context.Context, ref models.Ref, userID int) (string, error) {
	var rec models.ReactionRecord
	err := g.db.WithContext(ctx).
		Where("kind = ? AND parent_id = ? AND post_id = ? AND user_id = ?", ref.Kind, ref.ParentID, ref.PostID, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", translate(err)
	}
	return rec.Emoji, nil
}

// writeAggregate performs the version-checked tally update inside tx.
func writeAggregate(tx *gorm.DB, ref models.Ref, agg models.Aggregate, expectedVersion int64) error {
	res := tx.Model(&models.Aggregate{}).
		Where("kind = ? AND parent_id = ? AND post_id = ? AND version = ?", ref.Kind, ref.ParentID, ref.PostID, expectedVersion).
		Updates(map[string]interface{}{
			"upvotes":         agg.Upvotes,
			"downvotes":       agg.Downvotes,
			"votes":           agg.Votes,
			"reaction_counts": agg.ReactionCounts,
			"comment_count":   agg.CommentCount,
			"version":         gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (g *Gorm) CommitVote(ctx context.Context, ref models.Ref, agg models.Aggregate, expectedVersion int64, userID int, mut VoteMutation) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := writeAggregate(tx, ref, agg, expectedVersion); err != nil {
			return err
		}
		switch mut.Op {
		case OpCreate:
			rec := models.VoteRecord{
				Kind:     ref.Kind,
				ParentID: ref.ParentID,
				PostID:   ref.PostID,
				UserID:   userID,
				Value:    mut.Value,
			}
			return tx.Create(&rec).Error
		case OpUpdate:
			return tx.Model(&models.VoteRecord{}).
				Where("kind = ? AND parent_id = ? AND post_id = ? AND user_id = ?", ref.Kind, ref.ParentID, ref.PostID, userID).
				Update("value", mut.Value).Error
		case OpDelete:
			return tx.Where("kind = ? AND parent_id = ? AND post_id = ? AND user_id = ?", ref.Kind, ref.ParentID, ref.PostID, userID).
				Delete(&models.VoteRecord{}).Error
		}
		return nil
	})
	return translate(err)
}

func (g *Gorm) CommitReaction(ctx context.Context, ref models.Ref, agg models.Aggregate, expectedVersion int64, userID int, mut ReactionMutation) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := writeAggregate(tx, ref, agg, expectedVersion); err != nil {
			return err
		}
		switch mut.Op {
		case OpCreate:
			rec := models.ReactionRecord{
				Kind:     ref.Kind,
				ParentID: ref.ParentID,
				PostID:   ref.PostID,
				UserID:   userID,
				Emoji:    mut.Emoji,
			}
			return tx.Create(&rec).Error
		case OpUpdate:
			return tx.Model(&models.ReactionRecord{}).
				Where("kind = ? AND parent_id = ? AND post_id = ? AND user_id = ?", ref.Kind, ref.ParentID, ref.PostID, userID).
				Update("emoji", mut.Emoji).Error
		case OpDelete:
			return tx.Where("kind = ? AND parent_id = ? AND post_id = ? AND user_id = ?", ref.Kind, ref.ParentID, ref.PostID, userID).
				Delete(&models.ReactionRecord{}).Error
		}
		return nil
	})
	return translate(err)
}

func (g *Gorm) CommitAggregate(ctx context.Context, ref models.Ref, agg models.Aggregate, expectedVersion int64) error {
	return translate(writeAggregate(g.db.WithContext(ctx), ref, agg, expectedVersion))
}

func (g *Gorm) CreateComment(ctx context.Context, ref models.Ref, rec *models.CommentRecord) error {
	rec.Kind = ref.Kind
	rec.ParentID = ref.ParentID
	rec.PostID = ref.PostID
	return translate(g.db.WithContext(ctx).Create(rec).Error)
}

func (g *Gorm) ListComments(ctx context.Context, ref models.Ref) ([]models.CommentRecord, error) {
	var comments []models.CommentRecord
	err := g.db.WithContext(ctx).
		Where("kind = ? AND parent_id = ? AND post_id = ?", ref.Kind, ref.ParentID, ref.PostID).
		Order("created_at desc").
		Find(&comments).Error
	return comments, translate(err)
}

func (g *Gorm) CountVotes(ctx context.Context, ref models.Ref) (int, int, error) {
	var up, down int64
	err := g.db.WithContext(ctx).Model(&models.VoteRecord{}).
		Where("kind = ? AND parent_id = ? AND post_id = ? AND value = ?", ref.Kind, ref.ParentID, ref.PostID, models.VoteUp).
		Count(&up).Error
	if err != nil {
		return 0, 0, translate(err)
	}
	err = g.db.WithContext(ctx).Model(&models.VoteRecord{}).
		Where("kind = ? AND parent_id = ? AND post_id = ? AND value = ?", ref.Kind, ref.ParentID, ref.PostID, models.VoteDown).
		Count(&down).Error
	return int(up), int(down), translate(err)
}

func (g *Gorm) CountReactions(ctx context.Context, ref models.Ref) (models.ReactionCounts, error) {
	var rows []struct {
		Emoji string
		N     int
	}
	err := g.db.WithContext(ctx).Model(&models.ReactionRecord{}).
		Select("emoji, count(*) as n").
		Where("kind = ? AND parent_id = ? AND post_id = ?", ref.Kind, ref.ParentID, ref.PostID).
		Group("emoji").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	counts := models.ReactionCounts{}
	for _, row := range rows {
		counts[row.Emoji] = row.N
	}
	return counts, nil
}
