// Package store is the persistence layer for interaction aggregates and
// per-user interaction records. Commits are optimistic: every write of an
// aggregate carries the version the caller read, and the store rejects the
// write with ErrVersionConflict if the row moved underneath it. Every record
// mutation is paired with an aggregate write in the same transaction, so the
// aggregate version covers the whole read set.
package store

import (
	"context"
	"errors"

	"github.com/kalamitra/backend/internal/models"
)

var (
	// ErrVersionConflict means the aggregate changed between read and write.
	// Callers are expected to re-read and retry.
	ErrVersionConflict = errors.New("aggregate version conflict")

	// ErrPermissionDenied means the backing store rejected the operation for
	// authorization reasons. Never retried.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means no aggregate row exists for the ref.
	ErrNotFound = errors.New("aggregate not found")
)

// MutationOp describes what happens to the per-user record in a commit.
type MutationOp int

const (
	OpNone MutationOp = iota
	OpCreate
	OpUpdate
	OpDelete
)

// VoteMutation is the per-user record change committed alongside a new
// aggregate. Value is ignored for OpDelete and OpNone.
type VoteMutation struct {
	Op    MutationOp
	Value models.VoteValue
}

// ReactionMutation is the reaction-slot change committed alongside a new
// aggregate. Emoji is ignored for OpDelete and OpNone.
type ReactionMutation struct {
	Op    MutationOp
	Emoji string
}

// Store is the typed wrapper around the document store's read and
// conditional-write primitives.
type Store interface {
	// EnsureAggregate creates the zeroed aggregate row for a post if it does
	// not exist yet. Called once when the post itself is created.
	EnsureAggregate(ctx context.Context, ref models.Ref) error

	GetAggregate(ctx context.Context, ref models.Ref) (models.Aggregate, error)

	// GetVote returns the user's current vote, or nil when the user has not
	// voted on this post.
	GetVote(ctx context.Context, ref models.Ref, userID int) (*models.VoteValue, error)

	// GetReaction returns the user's current reaction emoji, or "" when the
	// user has no reaction on this post.
	GetReaction(ctx context.Context, ref models.Ref, userID int) (string, error)

	// CommitVote writes agg and applies mut to the user's vote record as one
	// atomic unit, conditioned on expectedVersion.
	CommitVote(ctx context.Context, ref models.Ref, agg models.Aggregate, expectedVersion int64, userID int, mut VoteMutation) error

	// CommitReaction is CommitVote for the reaction slot.
	CommitReaction(ctx context.Context, ref models.Ref, agg models.Aggregate, expectedVersion int64, userID int, mut ReactionMutation) error

	// CommitAggregate writes agg alone, conditioned on expectedVersion. Used
	// for the best-effort comment-count bump.
	CommitAggregate(ctx context.Context, ref models.Ref, agg models.Aggregate, expectedVersion int64) error

	// CreateComment appends a comment record. Not conditioned on any version;
	// the store assigns the timestamp.
	CreateComment(ctx context.Context, ref models.Ref, rec *models.CommentRecord) error

	// ListComments returns the post's comments, newest first.
	ListComments(ctx context.Context, ref models.Ref) ([]models.CommentRecord, error)

	// CountVotes recomputes tallies from record cardinality. Reconciliation
	// and test support, never part of the hot path.
	CountVotes(ctx context.Context, ref models.Ref) (up int, down int, err error)

	// CountReactions recomputes reaction tallies from record cardinality.
	CountReactions(ctx context.Context, ref models.Ref) (models.ReactionCounts, error)
}
