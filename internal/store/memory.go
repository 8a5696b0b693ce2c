package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kalamitra/backend/internal/models"
)

type recordKey struct {
	ref    models.Ref
	userID int
}

// Memory is an in-process Store with the same conditional-commit contract
// as the postgres implementation. It backs the test suites and supports
// fault injection for conflict and authorization paths.
type Memory struct {
	// BeforeCommit, when set, runs at the top of every commit before the
	// lock is taken. Tests use it to interleave a competing transaction
	// between a read and its commit.
	BeforeCommit func()

	mu          sync.Mutex
	aggregates  map[models.Ref]models.Aggregate
	votes       map[recordKey]models.VoteValue
	reactions   map[recordKey]string
	comments    map[models.Ref][]models.CommentRecord
	lastComment map[models.Ref]time.Time
	failCommits int
	denyWrites  bool
}

func NewMemory() *Memory {
	return &Memory{
		aggregates:  make(map[models.Ref]models.Aggregate),
		votes:       make(map[recordKey]models.VoteValue),
		reactions:   make(map[recordKey]string),
		comments:    make(map[models.Ref][]models.CommentRecord),
		lastComment: make(map[models.Ref]time.Time),
	}
}

// FailNextCommits makes the next n commits report a version conflict.
func (m *Memory) FailNextCommits(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCommits = n
}

// DenyWrites toggles authorization rejection of all mutating operations.
func (m *Memory) DenyWrites(deny bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denyWrites = deny
}

func (m *Memory) EnsureAggregate(ctx context.Context, ref models.Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denyWrites {
		return ErrPermissionDenied
	}
	if _, ok := m.aggregates[ref]; ok {
		return nil
	}
	m.aggregates[ref] = models.Aggregate{
		Kind:           ref.Kind,
		ParentID:       ref.ParentID,
		PostID:         ref.PostID,
		ReactionCounts: models.ReactionCounts{},
	}
	return nil
}

func (m *Memory) GetAggregate(ctx context.Context, ref models.Ref) (models.Aggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg, ok := m.aggregates[ref]
	if !ok {
		return models.Aggregate{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return agg.Clone(), nil
}

func (m *Memory) GetVote(ctx context.Context, ref models.Ref, userID int) (*models.VoteValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[recordKey{ref, userID}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *Memory) GetReaction(ctx context.Context, ref models.Ref, userID int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reactions[recordKey{ref, userID}], nil
}

// checkCommit validates faults and the version condition. Caller holds the lock.
func (m *Memory) checkCommit(ref models.Ref, expectedVersion int64) (models.Aggregate, error) {
	if m.denyWrites {
		return models.Aggregate{}, ErrPermissionDenied
	}
	if m.failCommits > 0 {
		m.failCommits--
		return models.Aggregate{}, ErrVersionConflict
	}
	cur, ok := m.aggregates[ref]
	if !ok {
		return models.Aggregate{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if cur.Version != expectedVersion {
		return models.Aggregate{}, ErrVersionConflict
	}
	return cur, nil
}

func (m *Memory) storeAggregate(ref models.Ref, agg models.Aggregate, expectedVersion int64) {
	next := agg.Clone()
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()
	m.aggregates[ref] = next
}

func (m *Memory) CommitVote(ctx context.Context, ref models.Ref, agg models.Aggregate, expectedVersion int64, userID int, mut VoteMutation) error {
	if hook := m.BeforeCommit; hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.checkCommit(ref, expectedVersion); err != nil {
		return err
	}
	m.storeAggregate(ref, agg, expectedVersion)
	key := recordKey{ref, userID}
	switch mut.Op {
	case OpCreate, OpUpdate:
		m.votes[key] = mut.Value
	case OpDelete:
		delete(m.votes, key)
	}
	return nil
}

func (m *Memory) CommitReaction(ctx context.Context, ref models.Ref, agg models.Aggregate, expectedVersion int64, userID int, mut ReactionMutation) error {
	if hook := m.BeforeCommit; hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.checkCommit(ref, expectedVersion); err != nil {
		return err
	}
	m.storeAggregate(ref, agg, expectedVersion)
	key := recordKey{ref, userID}
	switch mut.Op {
	case OpCreate, OpUpdate:
		m.reactions[key] = mut.Emoji
	case OpDelete:
		delete(m.reactions, key)
	}
	return nil
}

func (m *Memory) CommitAggregate(ctx context.Context, ref models.Ref, agg models.Aggregate, expectedVersion int64) error {
	if hook := m.BeforeCommit; hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.checkCommit(ref, expectedVersion); err != nil {
		return err
	}
	m.storeAggregate(ref, agg, expectedVersion)
	return nil
}

func (m *Memory) CreateComment(ctx context.Context, ref models.Ref, rec *models.CommentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denyWrites {
		return ErrPermissionDenied
	}
	rec.Kind = ref.Kind
	rec.ParentID = ref.ParentID
	rec.PostID = ref.PostID
	// Timestamps are store-assigned and strictly increasing per post.
	now := time.Now().UTC()
	if last := m.lastComment[ref]; !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	rec.CreatedAt = now
	m.lastComment[ref] = now
	m.comments[ref] = append(m.comments[ref], *rec)
	return nil
}

func (m *Memory) ListComments(ctx context.Context, ref models.Ref) ([]models.CommentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CommentRecord, len(m.comments[ref]))
	copy(out, m.comments[ref])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CountVotes(ctx context.Context, ref models.Ref) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var up, down int
	for key, v := range m.votes {
		if key.ref != ref {
			continue
		}
		if v == models.VoteUp {
			up++
		} else {
			down++
		}
	}
	return up, down, nil
}

func (m *Memory) CountReactions(ctx context.Context, ref models.Ref) (models.ReactionCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := models.ReactionCounts{}
	for key, emoji := range m.reactions {
		if key.ref == ref {
			counts[emoji]++
		}
	}
	return counts, nil
}
