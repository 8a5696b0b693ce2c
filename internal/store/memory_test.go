package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalamitra/backend/internal/models"
)

func TestMemoryEnsureAggregateIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ref := models.SubmissionRef(1, 1)

	require.NoError(t, m.EnsureAggregate(ctx, ref))

	agg, err := m.GetAggregate(ctx, ref)
	require.NoError(t, err)
	agg.Upvotes = 5
	agg.Votes = 5
	require.NoError(t, m.CommitVote(ctx, ref, agg, 0, 9, VoteMutation{Op: OpCreate, Value: models.VoteUp}))

	// Re-ensuring must not reset an existing aggregate.
	require.NoError(t, m.EnsureAggregate(ctx, ref))
	agg, err = m.GetAggregate(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 5, agg.Upvotes)
	assert.Equal(t, int64(1), agg.Version)
}

func TestMemoryStaleCommitRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ref := models.SubmissionRef(1, 2)
	require.NoError(t, m.EnsureAggregate(ctx, ref))

	stale, err := m.GetAggregate(ctx, ref)
	require.NoError(t, err)

	// Another writer lands first.
	fresh := stale.Clone()
	fresh.Upvotes = 1
	fresh.Votes = 1
	require.NoError(t, m.CommitVote(ctx, ref, fresh, stale.Version, 1, VoteMutation{Op: OpCreate, Value: models.VoteUp}))

	stale.Downvotes = 1
	stale.Votes = -1
	err = m.CommitVote(ctx, ref, stale, stale.Version, 2, VoteMutation{Op: OpCreate, Value: models.VoteDown})
	assert.ErrorIs(t, err, ErrVersionConflict)

	// The first write survived untouched.
	agg, err := m.GetAggregate(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.Upvotes)
	assert.Equal(t, 0, agg.Downvotes)
}

func TestMemoryUnknownAggregate(t *testing.T) {
	m := NewMemory()
	_, err := m.GetAggregate(context.Background(), models.StoryRef(99))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCloneIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ref := models.StoryRef(3)
	require.NoError(t, m.EnsureAggregate(ctx, ref))

	agg, err := m.GetAggregate(ctx, ref)
	require.NoError(t, err)
	agg.ReactionCounts["🔥"] = 100

	again, err := m.GetAggregate(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, again.ReactionCounts, "caller mutation must not leak into the store")
}

func TestMemoryDenyWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ref := models.StoryRef(4)
	require.NoError(t, m.EnsureAggregate(ctx, ref))
	agg, err := m.GetAggregate(ctx, ref)
	require.NoError(t, err)

	m.DenyWrites(true)
	err = m.CommitReaction(ctx, ref, agg, 0, 1, ReactionMutation{Op: OpCreate, Emoji: "✨"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = m.CreateComment(ctx, ref, &models.CommentRecord{ID: "x", AuthorID: 1, Content: "hi"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestMemoryCommentTimestampsMonotonic(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ref := models.StoryRef(5)
	require.NoError(t, m.EnsureAggregate(ctx, ref))

	var prev models.CommentRecord
	for i := 0; i < 10; i++ {
		rec := models.CommentRecord{ID: string(rune('a' + i)), AuthorID: 1, Content: "c"}
		require.NoError(t, m.CreateComment(ctx, ref, &rec))
		if i > 0 {
			assert.True(t, rec.CreatedAt.After(prev.CreatedAt))
		}
		prev = rec
	}

	comments, err := m.ListComments(ctx, ref)
	require.NoError(t, err)
	require.Len(t, comments, 10)
	for i := 1; i < len(comments); i++ {
		assert.True(t, comments[i-1].CreatedAt.After(comments[i].CreatedAt), "list is newest first")
	}
}

func TestMemoryCounts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ref := models.SubmissionRef(2, 6)
	other := models.SubmissionRef(2, 7)
	require.NoError(t, m.EnsureAggregate(ctx, ref))
	require.NoError(t, m.EnsureAggregate(ctx, other))

	agg, err := m.GetAggregate(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, m.CommitVote(ctx, ref, agg, 0, 1, VoteMutation{Op: OpCreate, Value: models.VoteUp}))
	agg, err = m.GetAggregate(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, m.CommitVote(ctx, ref, agg, 1, 2, VoteMutation{Op: OpCreate, Value: models.VoteDown}))

	oagg, err := m.GetAggregate(ctx, other)
	require.NoError(t, err)
	require.NoError(t, m.CommitReaction(ctx, other, oagg, 0, 3, ReactionMutation{Op: OpCreate, Emoji: "👏"}))

	up, down, err := m.CountVotes(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, up)
	assert.Equal(t, 1, down)

	up, down, err = m.CountVotes(ctx, other)
	require.NoError(t, err)
	assert.Zero(t, up)
	assert.Zero(t, down)

	counts, err := m.CountReactions(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{"👏": 1}, counts)
}
