package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalamitra/backend/internal/models"
)

func TestUpdateReachesAllSubscribers(t *testing.T) {
	h := New()
	t.Cleanup(func() { _ = h.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ref := models.SubmissionRef(1, 5)
	first, err := h.Subscribe(ctx, ref)
	require.NoError(t, err)
	second, err := h.Subscribe(ctx, ref)
	require.NoError(t, err)

	agg := models.Aggregate{
		Kind:           ref.Kind,
		ParentID:       ref.ParentID,
		PostID:         ref.PostID,
		Upvotes:        2,
		Downvotes:      1,
		Votes:          1,
		ReactionCounts: models.ReactionCounts{},
		Version:        3,
	}
	require.NoError(t, h.Publish(ref, agg))

	for _, ch := range []<-chan models.Aggregate{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, 2, got.Upvotes)
			assert.Equal(t, 1, got.Votes)
			assert.Equal(t, int64(3), got.Version)
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber missed the update")
		}
	}
}

func TestTopicsAreIsolatedPerPost(t *testing.T) {
	h := New()
	t.Cleanup(func() { _ = h.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watched := models.StoryRef(7)
	other := models.StoryRef(8)

	updates, err := h.Subscribe(ctx, watched)
	require.NoError(t, err)

	require.NoError(t, h.Publish(other, models.Aggregate{Kind: other.Kind, PostID: other.PostID, CommentCount: 9}))

	select {
	case got := <-updates:
		t.Fatalf("update for another post leaked through: %+v", got)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestOrderedPerPost(t *testing.T) {
	h := New()
	t.Cleanup(func() { _ = h.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ref := models.StoryRef(9)
	updates, err := h.Subscribe(ctx, ref)
	require.NoError(t, err)

	for v := int64(1); v <= 5; v++ {
		require.NoError(t, h.Publish(ref, models.Aggregate{Kind: ref.Kind, PostID: ref.PostID, Version: v}))
	}

	for want := int64(1); want <= 5; want++ {
		select {
		case got := <-updates:
			assert.Equal(t, want, got.Version)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing update %d", want)
		}
	}
}
