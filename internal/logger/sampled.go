package logger

import (
	"sync/atomic"
	"time"
)

// Sampled rate-limits a single high-frequency log site. Frame drops can
// happen dozens of times per second under load; logging each one would
// drown everything else.
type Sampled struct {
	base     Logger
	interval time.Duration

	lastLog    atomic.Int64 // unix nanos of last emitted entry
	suppressed atomic.Int64 // entries skipped since last emit
}

// NewSampled creates a sampled logger that emits at most one entry per
// interval, annotated with the number of suppressed entries.
func NewSampled(base Logger, interval time.Duration) *Sampled {
	return &Sampled{base: base, interval: interval}
}

// Info logs the message if the interval has elapsed, otherwise counts it
// as suppressed.
func (s *Sampled) Info(fields map[string]interface{}, args ...interface{}) {
	s.log(func(l Logger) { l.Info(args...) }, fields)
}

// Warn is the Warn-level variant of Info.
func (s *Sampled) Warn(fields map[string]interface{}, args ...interface{}) {
	s.log(func(l Logger) { l.Warn(args...) }, fields)
}

func (s *Sampled) log(emit func(Logger), fields map[string]interface{}) {
	now := time.Now().UnixNano()
	last := s.lastLog.Load()
	if now-last < s.interval.Nanoseconds() || !s.lastLog.CompareAndSwap(last, now) {
		s.suppressed.Add(1)
		return
	}

	skipped := s.suppressed.Swap(0)
	l := s.base
	if fields != nil {
		l = l.WithFields(fields)
	}
	if skipped > 0 {
		l = l.WithField("suppressed", skipped)
	}
	emit(l)
}

// Suppressed returns the number of entries skipped since the last emit.
func (s *Sampled) Suppressed() int64 {
	return s.suppressed.Load()
}
