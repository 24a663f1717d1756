package pipeline

import "github.com/vispipe/vispipe/internal/pixel"

// Slot is the two-slot frame exchange behind the drop policy: one frame
// in flight at the detector, at most one newer frame waiting. A newer
// submission always supersedes the waiting frame; nothing is ever
// queued behind it.
//
// Slot is not safe for concurrent use on its own. The processor
// serializes every call under its mutex, which is the single
// mutual-exclusion domain of the pipeline.
type Slot struct {
	pending  *pixel.Frame
	inFlight *pixel.Frame
}

// Offer places a frame into the exchange. If nothing is in flight the
// frame is promoted immediately and promoted is true. Otherwise it
// replaces the pending slot and the superseded frame, if any, is
// returned for release.
func (s *Slot) Offer(f *pixel.Frame) (promoted bool, dropped *pixel.Frame) {
	if s.inFlight == nil {
		s.inFlight = f
		return true, nil
	}
	dropped = s.pending
	s.pending = f
	return false, dropped
}

// Complete clears the in-flight slot and promotes the pending frame if
// one is waiting, returning the newly in-flight frame or nil.
func (s *Slot) Complete() *pixel.Frame {
	s.inFlight = nil
	if s.pending != nil {
		s.inFlight = s.pending
		s.pending = nil
	}
	return s.inFlight
}

// Drain removes and returns the pending frame without promoting it.
// Used at shutdown so the frame's buffers can be released.
func (s *Slot) Drain() *pixel.Frame {
	p := s.pending
	s.pending = nil
	return p
}

// InFlight returns the frame currently at the detector, or nil.
func (s *Slot) InFlight() *pixel.Frame {
	return s.inFlight
}

// Pending returns the waiting frame, or nil.
func (s *Slot) Pending() *pixel.Frame {
	return s.pending
}
