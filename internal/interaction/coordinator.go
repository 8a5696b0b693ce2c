package interaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalamitra/backend/internal/bus"
	"github.com/kalamitra/backend/internal/fanout"
	"github.com/kalamitra/backend/internal/models"
	"github.com/kalamitra/backend/internal/store"
)

const (
	maxAttempts = 5
	baseBackoff = 20 * time.Millisecond
)

// Coordinator executes read-compute-write sequences against the store with
// optimistic concurrency: read the aggregate and the user's record, run the
// transition, commit both conditioned on the version read, and retry the
// whole sequence with backoff when the store reports a conflict.
type Coordinator struct {
	store store.Store
	bus   *bus.Bus
	hub   *fanout.Hub
	guard *guard

	attempts int
	backoff  time.Duration
}

func NewCoordinator(st store.Store, b *bus.Bus, hub *fanout.Hub) *Coordinator {
	return &Coordinator{
		store:    st,
		bus:      b,
		hub:      hub,
		guard:    newGuard(),
		attempts: maxAttempts,
		backoff:  baseBackoff,
	}
}

// CastVote applies the user's vote to a submission. Submitting the held
// value retracts it; submitting the opposite switches it.
func (c *Coordinator) CastVote(ctx context.Context, ref models.Ref, userID int, value models.VoteValue) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if !ref.Valid() {
		return fmt.Errorf("invalid post ref %q", ref.String())
	}
	if !value.Valid() {
		return fmt.Errorf("invalid vote value %d", value)
	}

	key := guardKey{ref: ref, userID: userID, kind: opVote}
	if !c.guard.tryAcquire(key) {
		return ErrInFlight
	}
	defer c.guard.release(key)

	var committed models.Aggregate
	err := c.withRetry(ctx, ref, "vote", func(ctx context.Context) error {
		agg, err := c.store.GetAggregate(ctx, ref)
		if err != nil {
			return err
		}
		existing, err := c.store.GetVote(ctx, ref, userID)
		if err != nil {
			return err
		}
		delta, mut := TransitionVote(existing, value)
		next := agg.Clone()
		ApplyVoteDelta(&next, delta)
		if err := c.store.CommitVote(ctx, ref, next, agg.Version, userID, mut); err != nil {
			return err
		}
		next.Version = agg.Version + 1
		committed = next
		return nil
	})
	if err != nil {
		return err
	}
	c.announce(ref, committed)
	return nil
}

// SetReaction applies the user's single reaction slot. Re-submitting the
// held emoji retracts it; a different emoji moves the slot.
func (c *Coordinator) SetReaction(ctx context.Context, ref models.Ref, userID int, emoji string) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if !ref.Valid() {
		return fmt.Errorf("invalid post ref %q", ref.String())
	}
	if !models.IsAllowedEmoji(emoji) {
		return fmt.Errorf("emoji %q is not in the reaction set", emoji)
	}

	key := guardKey{ref: ref, userID: userID, kind: opReaction}
	if !c.guard.tryAcquire(key) {
		return ErrInFlight
	}
	defer c.guard.release(key)

	var committed models.Aggregate
	err := c.withRetry(ctx, ref, "reaction", func(ctx context.Context) error {
		agg, err := c.store.GetAggregate(ctx, ref)
		if err != nil {
			return err
		}
		existing, err := c.store.GetReaction(ctx, ref, userID)
		if err != nil {
			return err
		}
		delta, mut := TransitionReaction(existing, emoji)
		next := agg.Clone()
		ApplyReactionDelta(&next, delta)
		if err := c.store.CommitReaction(ctx, ref, next, agg.Version, userID, mut); err != nil {
			return err
		}
		next.Version = agg.Version + 1
		committed = next
		return nil
	})
	if err != nil {
		return err
	}
	c.announce(ref, committed)
	return nil
}

// AddComment appends a comment record, then bumps the parent's comment
// count. The bump is deliberately outside the record write: a failed bump
// leaves the count reading low, which reconciliation can repair from record
// cardinality, so it is logged rather than surfaced.
func (c *Coordinator) AddComment(ctx context.Context, ref models.Ref, author models.AuthorSnapshot, content string) (*models.CommentRecord, error) {
	if author.ID == 0 {
		return nil, ErrUnauthenticated
	}
	if !ref.Valid() {
		return nil, fmt.Errorf("invalid post ref %q", ref.String())
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("comment content is empty")
	}

	key := guardKey{ref: ref, userID: author.ID, kind: opComment}
	if !c.guard.tryAcquire(key) {
		return nil, ErrInFlight
	}
	defer c.guard.release(key)

	rec := &models.CommentRecord{
		ID:           uuid.NewString(),
		AuthorID:     author.ID,
		AuthorName:   author.Name,
		AuthorAvatar: author.AvatarURL,
		Content:      content,
	}
	if err := c.store.CreateComment(ctx, ref, rec); err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			return nil, c.reportPermission(ref, "comment", err)
		}
		return nil, err
	}

	var committed models.Aggregate
	err := c.withRetry(ctx, ref, "comment-count", func(ctx context.Context) error {
		agg, err := c.store.GetAggregate(ctx, ref)
		if err != nil {
			return err
		}
		next := agg.Clone()
		next.CommentCount++
		if err := c.store.CommitAggregate(ctx, ref, next, agg.Version); err != nil {
			return err
		}
		next.Version = agg.Version + 1
		committed = next
		return nil
	})
	if err != nil {
		log.Printf("comment count bump failed for %s: %v", ref, err)
		return rec, nil
	}
	c.announce(ref, committed)
	return rec, nil
}

// withRetry runs one read-compute-write attempt, retrying conflicts with
// bounded exponential backoff. Authorization rejections are never retried:
// they go out on the error channel once and come back tagged as reported.
func (c *Coordinator) withRetry(ctx context.Context, ref models.Ref, op string, attempt func(context.Context) error) error {
	delay := c.backoff
	for i := 1; ; i++ {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrPermissionDenied) {
			return c.reportPermission(ref, op, err)
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		if i >= c.attempts {
			return fmt.Errorf("%w: %s on %s gave up after %d attempts", ErrConflictExceeded, op, ref, i)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (c *Coordinator) reportPermission(ref models.Ref, op string, cause error) error {
	perr := &PermissionError{Path: ref.String(), Operation: op, Err: cause}
	if c.bus != nil {
		ev := bus.PermissionDenied{Path: ref.String(), Operation: op, OccurredAt: time.Now().UTC()}
		if err := c.bus.PublishPermissionDenied(ev); err != nil {
			log.Printf("permission event publish failed for %s: %v", ref, err)
		} else {
			perr.Reported = true
		}
	}
	return perr
}

func (c *Coordinator) announce(ref models.Ref, agg models.Aggregate) {
	if c.hub == nil {
		return
	}
	if err := c.hub.Publish(ref, agg); err != nil {
		log.Printf("aggregate fanout failed for %s: %v", ref, err)
	}
}
