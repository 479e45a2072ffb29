package paginate

import (
	"context"
	"encoding/json"
)

// OffsetFetch fetches one page at the given offset with the given page
// size.
type OffsetFetch func(ctx context.Context, offset, limit int) (*Page, error)

type offsetResult struct {
	page *Page
	err  error
}

// offsetLister keeps up to `workers` page fetches in flight at
// increasing offsets and consumes completed fetches strictly in offset
// order. It terminates on the first page shorter than the page size;
// pages prefetched past that point are discarded. Only safe against
// backends whose listings are stable under concurrent offset reads.
type offsetLister struct {
	fetch    OffsetFetch
	pageSize int
	workers  int

	next     int // next offset to schedule
	inFlight []chan offsetResult
	done     bool
}

// NewOffset creates an offset-parallel lister.
func NewOffset(fetch OffsetFetch, pageSize, workers int) Lister {
	if workers < 1 {
		workers = 1
	}
	return &offsetLister{fetch: fetch, pageSize: pageSize, workers: workers}
}

func (l *offsetLister) Next(ctx context.Context) ([]json.RawMessage, bool, error) {
	for {
		if l.done && len(l.inFlight) == 0 {
			return nil, false, nil
		}
		if err := ctx.Err(); err != nil && len(l.inFlight) == 0 {
			return nil, false, err
		}

		for !l.done && len(l.inFlight) < l.workers {
			ch := make(chan offsetResult, 1)
			offset := l.next
			l.next += l.pageSize
			go func() {
				page, err := l.fetch(ctx, offset, l.pageSize)
				ch <- offsetResult{page: page, err: err}
			}()
			l.inFlight = append(l.inFlight, ch)
		}

		// Head of the queue is the lowest outstanding offset.
		res := <-l.inFlight[0]
		l.inFlight = l.inFlight[1:]
		if res.err != nil {
			l.done = true
			l.drain()
			return nil, false, res.err
		}
		if len(res.page.Items) < l.pageSize {
			l.done = true
			l.drain()
		}
		if len(res.page.Items) > 0 {
			return res.page.Items, true, nil
		}
	}
}

// drain discards results of fetches scheduled past the end of the
// listing so their goroutines can exit.
func (l *offsetLister) drain() {
	for _, ch := range l.inFlight {
		<-ch
	}
	l.inFlight = nil
}
