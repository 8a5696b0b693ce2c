package interaction

import (
	"sync"

	"github.com/kalamitra/backend/internal/models"
)

type opKind uint8

const (
	opVote opKind = iota + 1
	opReaction
	opComment
)

type guardKey struct {
	ref    models.Ref
	userID int
	kind   opKind
}

// guard is the per-(post, user, kind) reentrancy lock. It makes rapid
// repeated requests a cheap no-op; correctness under real races still comes
// from the store's version check.
type guard struct {
	mu       sync.Mutex
	inflight map[guardKey]struct{}
}

func newGuard() *guard {
	return &guard{inflight: make(map[guardKey]struct{})}
}

func (g *guard) tryAcquire(k guardKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[k]; busy {
		return false
	}
	g.inflight[k] = struct{}{}
	return true
}

func (g *guard) release(k guardKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, k)
}
