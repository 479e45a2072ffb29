// Package progress renders live purge progress. The terminal sink
// draws a fetched bar and a deleted bar per resource kind, mirroring
// the enumerate/delete split of the engine.
package progress

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bars is a stats.Sink drawing terminal progress bars with mpb.
type Bars struct {
	p  *mpb.Progress
	mu sync.Mutex
	// kinds maps kind name to its bar pair. Bars are created lazily on
	// the first update so skipped kinds never appear.
	kinds map[string]*kindBars
}

type kindBars struct {
	fetch   *mpb.Bar
	del     *mpb.Bar
	fetched int64
	deleted int64
}

// NewBars creates a bar renderer writing to w.
func NewBars(w io.Writer) *Bars {
	return &Bars{
		p:     mpb.New(mpb.WithOutput(w), mpb.WithWidth(40)),
		kinds: make(map[string]*kindBars),
	}
}

func (b *Bars) get(kind string) *kindBars {
	b.mu.Lock()
	defer b.mu.Unlock()
	kb, ok := b.kinds[kind]
	if !ok {
		kb = &kindBars{
			fetch: b.p.AddBar(0,
				mpb.PrependDecorators(
					decor.Name(kind+" fetched ", decor.WCSyncSpaceR),
					decor.CurrentNoUnit("%d"),
				),
			),
			del: b.p.AddBar(0,
				mpb.PrependDecorators(
					decor.Name(kind+" deleted ", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d"),
				),
			),
		}
		b.kinds[kind] = kb
	}
	return kb
}

// Fetched advances the kind's fetch bar and grows the delete bar's
// total, so the delete bar always shows deleted-so-far against
// fetched-so-far.
func (b *Bars) Fetched(kind string, n int) {
	kb := b.get(kind)
	b.mu.Lock()
	kb.fetched += int64(n)
	fetched := kb.fetched
	b.mu.Unlock()
	kb.fetch.SetTotal(fetched, false)
	kb.fetch.IncrBy(n)
	kb.del.SetTotal(fetched, false)
}

// Deleted advances the kind's delete bar.
func (b *Bars) Deleted(kind string, n int) {
	kb := b.get(kind)
	b.mu.Lock()
	kb.deleted += int64(n)
	b.mu.Unlock()
	kb.del.IncrBy(n)
}

// Done completes both bars for the kind, whatever their totals ended
// up as.
func (b *Bars) Done(kind string) {
	b.mu.Lock()
	kb, ok := b.kinds[kind]
	b.mu.Unlock()
	if !ok {
		return
	}
	kb.fetch.SetTotal(-1, true)
	kb.del.SetTotal(-1, true)
}

// Wait blocks until all bars have rendered their final state. Call
// once after the run completes.
func (b *Bars) Wait() {
	b.mu.Lock()
	for _, kb := range b.kinds {
		kb.fetch.SetTotal(-1, true)
		kb.del.SetTotal(-1, true)
	}
	b.mu.Unlock()
	b.p.Wait()
}
