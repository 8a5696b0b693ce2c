package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalamitra/backend/internal/models"
	"github.com/kalamitra/backend/internal/store"
)

func votePtr(v models.VoteValue) *models.VoteValue { return &v }

func TestTransitionVote(t *testing.T) {
	tests := []struct {
		name      string
		existing  *models.VoteValue
		requested models.VoteValue
		wantDelta VoteDelta
		wantMut   store.VoteMutation
	}{
		{
			name:      "absent to up",
			requested: models.VoteUp,
			wantDelta: VoteDelta{Up: 1},
			wantMut:   store.VoteMutation{Op: store.OpCreate, Value: models.VoteUp},
		},
		{
			name:      "absent to down",
			requested: models.VoteDown,
			wantDelta: VoteDelta{Down: 1},
			wantMut:   store.VoteMutation{Op: store.OpCreate, Value: models.VoteDown},
		},
		{
			name:      "up resubmitted retracts",
			existing:  votePtr(models.VoteUp),
			requested: models.VoteUp,
			wantDelta: VoteDelta{Up: -1},
			wantMut:   store.VoteMutation{Op: store.OpDelete},
		},
		{
			name:      "down resubmitted retracts",
			existing:  votePtr(models.VoteDown),
			requested: models.VoteDown,
			wantDelta: VoteDelta{Down: -1},
			wantMut:   store.VoteMutation{Op: store.OpDelete},
		},
		{
			name:      "up switches to down",
			existing:  votePtr(models.VoteUp),
			requested: models.VoteDown,
			wantDelta: VoteDelta{Up: -1, Down: 1},
			wantMut:   store.VoteMutation{Op: store.OpUpdate, Value: models.VoteDown},
		},
		{
			name:      "down switches to up",
			existing:  votePtr(models.VoteDown),
			requested: models.VoteUp,
			wantDelta: VoteDelta{Up: 1, Down: -1},
			wantMut:   store.VoteMutation{Op: store.OpUpdate, Value: models.VoteUp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, mut := TransitionVote(tt.existing, tt.requested)
			assert.Equal(t, tt.wantDelta, delta)
			assert.Equal(t, tt.wantMut, mut)
		})
	}
}

func TestApplyVoteDeltaRecomputesNet(t *testing.T) {
	agg := models.Aggregate{Upvotes: 3, Downvotes: 1, Votes: 2}

	ApplyVoteDelta(&agg, VoteDelta{Up: -1, Down: 1})

	assert.Equal(t, 2, agg.Upvotes)
	assert.Equal(t, 2, agg.Downvotes)
	assert.Equal(t, 0, agg.Votes, "net score must be recomputed from its constituents")
}

func TestTransitionReaction(t *testing.T) {
	tests := []struct {
		name      string
		existing  string
		requested string
		wantDelta ReactionDelta
		wantMut   store.ReactionMutation
	}{
		{
			name:      "absent to emoji",
			requested: "✨",
			wantDelta: ReactionDelta{"✨": 1},
			wantMut:   store.ReactionMutation{Op: store.OpCreate, Emoji: "✨"},
		},
		{
			name:      "same emoji retracts",
			existing:  "✨",
			requested: "✨",
			wantDelta: ReactionDelta{"✨": -1},
			wantMut:   store.ReactionMutation{Op: store.OpDelete},
		},
		{
			name:      "emoji moves slot",
			existing:  "✨",
			requested: "🔥",
			wantDelta: ReactionDelta{"✨": -1, "🔥": 1},
			wantMut:   store.ReactionMutation{Op: store.OpUpdate, Emoji: "🔥"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, mut := TransitionReaction(tt.existing, tt.requested)
			assert.Equal(t, tt.wantDelta, delta)
			assert.Equal(t, tt.wantMut, mut)
		})
	}
}

func TestApplyReactionDeltaDropsZeroEntries(t *testing.T) {
	agg := models.Aggregate{ReactionCounts: models.ReactionCounts{"✨": 1}}

	ApplyReactionDelta(&agg, ReactionDelta{"✨": -1, "🔥": 1})

	require.NotContains(t, agg.ReactionCounts, "✨")
	assert.Equal(t, 1, agg.ReactionCounts["🔥"])
}

func TestApplyReactionDeltaNilMap(t *testing.T) {
	agg := models.Aggregate{}

	ApplyReactionDelta(&agg, ReactionDelta{"🎉": 1})

	assert.Equal(t, 1, agg.ReactionCounts["🎉"])
}
