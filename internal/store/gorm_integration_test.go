package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kalamitra/backend/internal/models"
)

// Spins up a disposable postgres and runs the same commit contract the
// memory store is tested against. Gated behind INTEGRATION because it
// needs a container runtime.
func newIntegrationStore(t *testing.T) *Gorm {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run container-backed store tests")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("kalamitra_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Aggregate{},
		&models.VoteRecord{},
		&models.ReactionRecord{},
		&models.CommentRecord{},
	))

	return NewGorm(db)
}

func TestGormCommitCycle(t *testing.T) {
	g := newIntegrationStore(t)
	ctx := context.Background()
	ref := models.SubmissionRef(1, 1)

	require.NoError(t, g.EnsureAggregate(ctx, ref))
	require.NoError(t, g.EnsureAggregate(ctx, ref), "ensure must be idempotent")

	agg, err := g.GetAggregate(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, int64(0), agg.Version)

	next := agg.Clone()
	next.Upvotes = 1
	next.Votes = 1
	require.NoError(t, g.CommitVote(ctx, ref, next, agg.Version, 7, VoteMutation{Op: OpCreate, Value: models.VoteUp}))

	// Stale commit loses.
	stale := agg.Clone()
	stale.Downvotes = 1
	stale.Votes = -1
	err = g.CommitVote(ctx, ref, stale, agg.Version, 8, VoteMutation{Op: OpCreate, Value: models.VoteDown})
	assert.ErrorIs(t, err, ErrVersionConflict)

	agg, err = g.GetAggregate(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.Upvotes)
	assert.Equal(t, 0, agg.Downvotes)
	assert.Equal(t, int64(1), agg.Version)

	vote, err := g.GetVote(ctx, ref, 7)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, models.VoteUp, *vote)

	up, down, err := g.CountVotes(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, up)
	assert.Equal(t, 0, down)
}

func TestGormReactionAndComments(t *testing.T) {
	g := newIntegrationStore(t)
	ctx := context.Background()
	ref := models.StoryRef(2)

	require.NoError(t, g.EnsureAggregate(ctx, ref))
	agg, err := g.GetAggregate(ctx, ref)
	require.NoError(t, err)

	next := agg.Clone()
	next.ReactionCounts["✨"] = 1
	require.NoError(t, g.CommitReaction(ctx, ref, next, agg.Version, 7, ReactionMutation{Op: OpCreate, Emoji: "✨"}))

	emoji, err := g.GetReaction(ctx, ref, 7)
	require.NoError(t, err)
	assert.Equal(t, "✨", emoji)

	counts, err := g.CountReactions(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{"✨": 1}, counts)

	rec := models.CommentRecord{ID: "11111111-1111-1111-1111-111111111111", AuthorID: 7, AuthorName: "meera", Content: "beautiful"}
	require.NoError(t, g.CreateComment(ctx, ref, &rec))
	assert.False(t, rec.CreatedAt.IsZero(), "store assigns the timestamp")

	comments, err := g.ListComments(ctx, ref)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "meera", comments[0].AuthorName)
}
