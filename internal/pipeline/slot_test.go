package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vispipe/vispipe/internal/pixel"
)

func frame(id string) *pixel.Frame {
	return &pixel.Frame{ID: id, Width: 2, Height: 2, Format: pixel.FormatNV21}
}

func TestSlot_PromoteWhenEmpty(t *testing.T) {
	var s Slot
	f := frame("a")

	promoted, dropped := s.Offer(f)
	assert.True(t, promoted)
	assert.Nil(t, dropped)
	assert.Same(t, f, s.InFlight())
	assert.Nil(t, s.Pending())
}

func TestSlot_SupersedesPending(t *testing.T) {
	var s Slot
	a, b, c := frame("a"), frame("b"), frame("c")

	s.Offer(a)
	promoted, dropped := s.Offer(b)
	assert.False(t, promoted)
	assert.Nil(t, dropped)

	// c supersedes b; b is dropped, never queued.
	promoted, dropped = s.Offer(c)
	assert.False(t, promoted)
	assert.Same(t, b, dropped)
	assert.Same(t, a, s.InFlight())
	assert.Same(t, c, s.Pending())
}

func TestSlot_CompletePromotesPending(t *testing.T) {
	var s Slot
	a, b := frame("a"), frame("b")

	s.Offer(a)
	s.Offer(b)

	next := s.Complete()
	assert.Same(t, b, next)
	assert.Same(t, b, s.InFlight())
	assert.Nil(t, s.Pending())

	assert.Nil(t, s.Complete())
	assert.Nil(t, s.InFlight())
}

func TestSlot_Drain(t *testing.T) {
	var s Slot
	a, b := frame("a"), frame("b")

	s.Offer(a)
	s.Offer(b)

	assert.Same(t, b, s.Drain())
	assert.Nil(t, s.Pending())
	// The in-flight frame is untouched by a drain.
	assert.Same(t, a, s.InFlight())
	assert.Nil(t, s.Drain())
}
