// Package interaction turns a single user action (vote, reaction, comment)
// into a correct, retried, atomic store mutation. The transition functions
// here are the pure half: given the user's existing record and the requested
// value, they compute the tally delta and the record mutation. All I/O and
// retry logic lives in the Coordinator.
package interaction

import (
	"github.com/kalamitra/backend/internal/models"
	"github.com/kalamitra/backend/internal/store"
)

// VoteDelta is the tally adjustment produced by one vote transition.
type VoteDelta struct {
	Up   int
	Down int
}

// TransitionVote is the ternary vote state machine: absent, up, down.
// Submitting the value already held retracts it; submitting the opposite
// switches it. Total over all input pairs.
func TransitionVote(existing *models.VoteValue, requested models.VoteValue) (VoteDelta, store.VoteMutation) {
	switch {
	case existing == nil:
		if requested == models.VoteUp {
			return VoteDelta{Up: 1}, store.VoteMutation{Op: store.OpCreate, Value: requested}
		}
		return VoteDelta{Down: 1}, store.VoteMutation{Op: store.OpCreate, Value: requested}

	case *existing == requested:
		// Re-submitting the same value retracts it.
		if requested == models.VoteUp {
			return VoteDelta{Up: -1}, store.VoteMutation{Op: store.OpDelete}
		}
		return VoteDelta{Down: -1}, store.VoteMutation{Op: store.OpDelete}

	default:
		if requested == models.VoteUp {
			return VoteDelta{Up: 1, Down: -1}, store.VoteMutation{Op: store.OpUpdate, Value: requested}
		}
		return VoteDelta{Up: -1, Down: 1}, store.VoteMutation{Op: store.OpUpdate, Value: requested}
	}
}

// ApplyVoteDelta adjusts the constituent tallies and recomputes the derived
// net score from them. Votes is never incremented independently, so a delta
// can never leave it out of sync with upvotes/downvotes.
func ApplyVoteDelta(agg *models.Aggregate, d VoteDelta) {
	agg.Upvotes += d.Up
	agg.Downvotes += d.Down
	agg.Votes = agg.Upvotes - agg.Downvotes
}

// ReactionDelta maps emoji to tally adjustment.
type ReactionDelta map[string]int

// TransitionReaction is the single-slot reaction state machine. A user holds
// at most one emoji per post; re-submitting it retracts it, submitting a
// different one moves the slot.
func TransitionReaction(existing, requested string) (ReactionDelta, store.ReactionMutation) {
	switch existing {
	case "":
		return ReactionDelta{requested: 1}, store.ReactionMutation{Op: store.OpCreate, Emoji: requested}
	case requested:
		return ReactionDelta{requested: -1}, store.ReactionMutation{Op: store.OpDelete}
	default:
		return ReactionDelta{existing: -1, requested: 1}, store.ReactionMutation{Op: store.OpUpdate, Emoji: requested}
	}
}

// ApplyReactionDelta adjusts the reaction tallies, dropping entries that
// reach zero so the map only carries live emoji.
func ApplyReactionDelta(agg *models.Aggregate, d ReactionDelta) {
	if agg.ReactionCounts == nil {
		agg.ReactionCounts = models.ReactionCounts{}
	}
	for emoji, n := range d {
		next := agg.ReactionCounts[emoji] + n
		if next <= 0 {
			delete(agg.ReactionCounts, emoji)
			continue
		}
		agg.ReactionCounts[emoji] = next
	}
}
