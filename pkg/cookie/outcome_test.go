package cookie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEquivalentIdenticalDigest(t *testing.T) {
	baseline := NewOutcome(200, []byte("hello world"))
	same := NewOutcome(200, []byte("hello world"))
	assert.True(t, same.Equivalent(baseline))
}

func TestEquivalentDifferentStatus(t *testing.T) {
	baseline := NewOutcome(200, []byte("hello world"))
	other := NewOutcome(401, []byte("hello world"))
	assert.False(t, other.Equivalent(baseline))
}

func TestEquivalentWithinBodySlack(t *testing.T) {
	baseline := NewOutcome(200, make([]byte, 1000))
	within := NewOutcome(200, make([]byte, 1040)) // 4% longer
	assert.True(t, within.Equivalent(baseline))
}

func TestEquivalentOutsideBodySlack(t *testing.T) {
	baseline := NewOutcome(200, make([]byte, 1000))
	outside := NewOutcome(200, make([]byte, 1100)) // 10% longer, different content
	assert.False(t, outside.Equivalent(baseline))
}

func TestEquivalentFailedNeverEquivalent(t *testing.T) {
	baseline := NewOutcome(200, []byte("hello"))
	failed := FailedOutcome("timeout")
	assert.False(t, failed.Equivalent(baseline))
	assert.False(t, baseline.Equivalent(failed))
}

func TestNewFailedVerdictMarksEveryCookieUnknown(t *testing.T) {
	a := NewCookie(1, "a", "1")
	b := NewCookie(2, "b", "2")

	v := NewFailedVerdict([]Cookie{a, b}, 1)
	assert.True(t, v.Failed)
	assert.Equal(t, []Cookie{a, b}, v.Optional)
	assert.Empty(t, v.Required)
	assert.Contains(t, v.Details[a.ID()], "Unknown")
	assert.Contains(t, v.Details[b.ID()], "Unknown")
}
