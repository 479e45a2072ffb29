// Package stats accumulates per-kind purge counters and streams live
// progress to an injected display sink.
package stats

import (
	"sync"
)

const (
	// maxErrors caps the per-kind error log so a systemically failing
	// backend can't grow memory without bound.
	maxErrors = 25

	// maxErrorLen truncates individual error strings for the same
	// reason.
	maxErrorLen = 300
)

// Sink receives live counter updates. Implementations must tolerate
// concurrent callers.
type Sink interface {
	// Fetched reports n newly enumerated items for a kind.
	Fetched(kind string, n int)
	// Deleted reports n newly deleted items for a kind.
	Deleted(kind string, n int)
	// Done marks a kind as fully drained.
	Done(kind string)
}

// NopSink discards all updates.
type NopSink struct{}

func (NopSink) Fetched(string, int) {}
func (NopSink) Deleted(string, int) {}
func (NopSink) Done(string)         {}

// Summary is a read-only snapshot of one kind's counters.
type Summary struct {
	Kind            string
	Fetched         int
	Deleted         int
	Failed          int
	Batches         int
	Errors          []string
	ErrorsTruncated int
}

// ResourceStats holds one kind's counters. All mutation goes through
// the owning Tracker, which serializes writers per kind.
type resourceStats struct {
	mu        sync.Mutex
	kind      string
	fetched   int
	deleted   int
	failed    int
	batches   int
	errors    []string
	truncated int
}

func (s *resourceStats) summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := make([]string, len(s.errors))
	copy(errs, s.errors)
	return Summary{
		Kind:            s.kind,
		Fetched:         s.fetched,
		Deleted:         s.deleted,
		Failed:          s.failed,
		Batches:         s.batches,
		Errors:          errs,
		ErrorsTruncated: s.truncated,
	}
}

// Tracker aggregates counters for all kinds in a run.
type Tracker struct {
	mu     sync.Mutex
	order  []string
	byKind map[string]*resourceStats
	sink   Sink
}

// NewTracker creates a tracker reporting to sink. A nil sink is
// replaced with NopSink.
func NewTracker(sink Sink) *Tracker {
	if sink == nil {
		sink = NopSink{}
	}
	return &Tracker{
		byKind: make(map[string]*resourceStats),
		sink:   sink,
	}
}

func (t *Tracker) get(kind string) *resourceStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.byKind[kind]
	if !ok {
		s = &resourceStats{kind: kind}
		t.byKind[kind] = s
		t.order = append(t.order, kind)
	}
	return s
}

// RecordFetched adds n to the kind's fetched count.
func (t *Tracker) RecordFetched(kind string, n int) {
	if n <= 0 {
		return
	}
	s := t.get(kind)
	s.mu.Lock()
	s.fetched += n
	s.mu.Unlock()
	t.sink.Fetched(kind, n)
}

// RecordDeleted adds n to the kind's deleted count.
func (t *Tracker) RecordDeleted(kind string, n int) {
	if n <= 0 {
		return
	}
	s := t.get(kind)
	s.mu.Lock()
	s.deleted += n
	s.mu.Unlock()
	t.sink.Deleted(kind, n)
}

// RecordFailed adds n failures sharing one error message. n may be
// zero for errors that consumed no items (e.g. a listing failure).
func (t *Tracker) RecordFailed(kind, msg string, n int) {
	s := t.get(kind)
	s.mu.Lock()
	s.failed += n
	if len(s.errors) < maxErrors {
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen] + "..."
		}
		s.errors = append(s.errors, msg)
	} else {
		s.truncated++
	}
	s.mu.Unlock()
}

// RecordBatch counts one bulk-delete call issued for the kind.
func (t *Tracker) RecordBatch(kind string) {
	s := t.get(kind)
	s.mu.Lock()
	s.batches++
	s.mu.Unlock()
}

// Finish marks a kind as fully drained; its stats are read-only from
// here on.
func (t *Tracker) Finish(kind string) {
	t.get(kind)
	t.sink.Done(kind)
}

// Summary returns the snapshot for one kind.
func (t *Tracker) Summary(kind string) Summary {
	return t.get(kind).summary()
}

// All returns snapshots for every kind in first-seen order.
func (t *Tracker) All() []Summary {
	t.mu.Lock()
	order := make([]string, len(t.order))
	copy(order, t.order)
	t.mu.Unlock()

	out := make([]Summary, 0, len(order))
	for _, kind := range order {
		out = append(out, t.get(kind).summary())
	}
	return out
}

// AnyFailed reports whether at least one item failed anywhere in the
// run.
func (t *Tracker) AnyFailed() bool {
	for _, s := range t.All() {
		if s.Failed > 0 {
			return true
		}
	}
	return false
}
