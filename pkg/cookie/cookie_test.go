package cookie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetPreservesInputOrder(t *testing.T) {
	a := NewCookie(1, "a", "1")
	b := NewCookie(2, "b", "2")
	c := NewCookie(3, "c", "3")

	s := NewSet(a, b, c)
	assert.Equal(t, []Cookie{a, b, c}, s.Items())
}

func TestSetRemovePreservesOrderOfRemaining(t *testing.T) {
	a := NewCookie(1, "a", "1")
	b := NewCookie(2, "b", "2")
	c := NewCookie(3, "c", "3")

	s := NewSet(a, b, c)
	s.Remove(b)
	assert.Equal(t, []Cookie{a, c}, s.Items())
	assert.False(t, s.Contains(b))
}

func TestSetWithoutDoesNotMutateReceiver(t *testing.T) {
	a := NewCookie(1, "a", "1")
	b := NewCookie(2, "b", "2")

	s := NewSet(a, b)
	without := s.Without(a)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, without.Len())
	assert.True(t, s.Contains(a))
	assert.False(t, without.Contains(a))
}

func TestSetAddIsIdempotentByIdentity(t *testing.T) {
	a := NewCookie(1, "a", "1")
	s := NewSet(a)
	s.Add(a)
	assert.Equal(t, 1, s.Len())
}

func TestSetNamesFormatsEmptyAsNone(t *testing.T) {
	assert.Equal(t, "none", NewSet().Names())
	assert.Equal(t, "a, b", NewSet(NewCookie(1, "a", "1"), NewCookie(2, "b", "2")).Names())
}
