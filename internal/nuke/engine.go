// Package nuke implements the purge engine: it drives each resource
// kind's pagination strategy, fans out deletions at bounded
// concurrency, and aggregates per-kind outcome stats.
package nuke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/safetyops/scnuke/internal/api"
	"github.com/safetyops/scnuke/internal/paginate"
	"github.com/safetyops/scnuke/internal/resource"
	"github.com/safetyops/scnuke/internal/stats"
)

// Default concurrency ceilings for a run.
const (
	DefaultListConcurrency   = 8
	DefaultDeleteConcurrency = 16

	// flushThreshold bounds how many deletions may be dispatched before
	// the engine drains them, capping memory for kinds with unbounded
	// total volume.
	flushThreshold = 400
)

// ErrItemsFailed reports that the run completed but at least one item
// could not be deleted. It is a signal, not an abort: the engine never
// stops a run over item failures.
var ErrItemsFailed = errors.New("some items could not be deleted")

// Options configures a purge run.
type Options struct {
	Client *api.Client

	// ListConcurrency and DeleteConcurrency are the run-global ceilings
	// for listing and deletion requests in flight.
	ListConcurrency   int
	DeleteConcurrency int

	// Skip names resource kinds excluded from the run.
	Skip map[resource.Kind]bool

	// Sink receives live progress updates; nil means none.
	Sink stats.Sink

	// AlreadyProcessed, when set, suppresses deletion of identifiers a
	// previous run is known to have handled.
	AlreadyProcessed func(resource.Kind, string) bool

	// ProcessedLog, when set, records every successfully deleted
	// identifier so a later run can skip it.
	ProcessedLog *ProcessedLog

	// Verbose enables per-kind progress lines on Stderr.
	Verbose bool
	Stderr  io.Writer
}

// Engine runs one purge over all selected resource kinds.
type Engine struct {
	client           *api.Client
	listGate         *api.Gate
	deleteGate       *api.Gate
	listConcurrency  int
	tracker          *stats.Tracker
	skip             map[resource.Kind]bool
	alreadyProcessed func(resource.Kind, string) bool
	processedLog     *ProcessedLog
	verbose          bool
	stderr           io.Writer
}

// New creates an engine from opts.
func New(opts Options) *Engine {
	listN := opts.ListConcurrency
	if listN <= 0 {
		listN = DefaultListConcurrency
	}
	delN := opts.DeleteConcurrency
	if delN <= 0 {
		delN = DefaultDeleteConcurrency
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	return &Engine{
		client:           opts.Client,
		listGate:         api.NewGate(listN),
		deleteGate:       api.NewGate(delN),
		listConcurrency:  listN,
		tracker:          stats.NewTracker(opts.Sink),
		skip:             opts.Skip,
		alreadyProcessed: opts.AlreadyProcessed,
		processedLog:     opts.ProcessedLog,
		verbose:          opts.Verbose,
		stderr:           stderr,
	}
}

// Kinds returns the kinds this engine will process, in order.
func (e *Engine) Kinds() []resource.Kind {
	var kinds []resource.Kind
	for _, k := range resource.Order {
		if !e.skip[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Run processes every selected kind in the fixed dependency order and
// returns the per-kind summaries. A kind that fails completely never
// stops the run; Run returns ErrItemsFailed if anything failed, or the
// context error if the run was interrupted. Either way the summaries
// reflect everything that actually happened.
func (e *Engine) Run(ctx context.Context) ([]stats.Summary, error) {
	for _, kind := range e.Kinds() {
		if ctx.Err() != nil {
			break
		}
		spec := kindTable[kind]
		if e.verbose {
			fmt.Fprintf(e.stderr, "deleting %s...\n", kind)
		}
		e.processKind(ctx, spec)
		e.tracker.Finish(string(kind))
		if e.verbose {
			s := e.tracker.Summary(string(kind))
			fmt.Fprintf(e.stderr, "  -> %d/%d deleted (%d failed)\n", s.Deleted, s.Fetched, s.Failed)
		}
	}

	summaries := e.tracker.All()
	if err := ctx.Err(); err != nil {
		return summaries, err
	}
	if e.tracker.AnyFailed() {
		return summaries, ErrItemsFailed
	}
	return summaries, nil
}

// processKind drains one kind: pages from its lister, dedup, local
// precondition checks, then deletion fan-out. The engine drains
// in-flight deletions between pages and whenever the dispatched count
// reaches the flush threshold, so cancellation and memory stay
// bounded.
func (e *Engine) processKind(ctx context.Context, spec kindSpec) {
	kind := string(spec.kind)
	lister := spec.newLister(e)
	seen := make(map[string]struct{})

	var wg sync.WaitGroup
	pending := 0
	drain := func() {
		wg.Wait()
		pending = 0
	}
	defer drain()

	for {
		raws, ok, err := lister.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				e.tracker.RecordFailed(kind, fmt.Sprintf("listing %s failed: %v", kind, err), 0)
			}
			return
		}
		if !ok {
			return
		}

		var items []resource.Item
		for _, raw := range raws {
			it, ok := resource.Extract(spec.kind, raw)
			if !ok {
				continue
			}
			key := it.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if e.alreadyProcessed != nil && it.Err == "" && e.alreadyProcessed(spec.kind, it.ID) {
				continue
			}
			items = append(items, it)
		}
		e.tracker.RecordFetched(kind, len(items))

		// Local precondition failures are recorded without ever
		// touching the network.
		dispatch := items[:0]
		for _, it := range items {
			if it.Err != "" {
				e.tracker.RecordFailed(kind, it.Err, 1)
				continue
			}
			dispatch = append(dispatch, it)
		}

		batchSize := spec.batch
		if batchSize < 1 {
			batchSize = 1
		}
		for start := 0; start < len(dispatch); start += batchSize {
			end := start + batchSize
			if end > len(dispatch) {
				end = len(dispatch)
			}
			group := dispatch[start:end]
			if batchSize > 1 {
				e.tracker.RecordBatch(kind)
			}

			// Once dispatched, a delete runs to completion even if the
			// run is interrupted: an abandoned delete's server-side
			// effect is unknown.
			dctx := context.WithoutCancel(ctx)
			pending += len(group)
			wg.Add(1)
			go func() {
				defer wg.Done()
				spec.deleteFn(e, dctx, group)
			}()

			if pending >= flushThreshold {
				drain()
			}
		}

		// Drain before the next page; cancellation is honored only at
		// page boundaries.
		drain()
		if ctx.Err() != nil {
			return
		}
	}
}

// listPage runs one listing request through the list gate and parses
// the kind's envelope.
func (e *Engine) listPage(ctx context.Context, kind resource.Kind, method, path string, query url.Values, body any) (*paginate.Page, error) {
	var page *paginate.Page
	err := e.listGate.Do(ctx, func() error {
		data, err := e.client.Do(ctx, method, path, query, body)
		if err != nil {
			return err
		}
		page, err = resource.ParsePage(kind, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (e *Engine) logProcessed(kind resource.Kind, id string) {
	if e.processedLog != nil {
		e.processedLog.Record(kind, id)
	}
}
