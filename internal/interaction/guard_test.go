package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kalamitra/backend/internal/models"
)

func TestGuardBlocksSameKey(t *testing.T) {
	g := newGuard()
	key := guardKey{ref: models.SubmissionRef(1, 2), userID: 7, kind: opVote}

	assert.True(t, g.tryAcquire(key))
	assert.False(t, g.tryAcquire(key), "second acquire for the same key must fail")

	g.release(key)
	assert.True(t, g.tryAcquire(key), "released key must be acquirable again")
}

func TestGuardKeysAreIndependent(t *testing.T) {
	g := newGuard()
	base := guardKey{ref: models.SubmissionRef(1, 2), userID: 7, kind: opVote}

	assert.True(t, g.tryAcquire(base))

	otherUser := base
	otherUser.userID = 8
	assert.True(t, g.tryAcquire(otherUser))

	otherKind := base
	otherKind.kind = opReaction
	assert.True(t, g.tryAcquire(otherKind))

	otherPost := base
	otherPost.ref = models.SubmissionRef(1, 3)
	assert.True(t, g.tryAcquire(otherPost))
}
