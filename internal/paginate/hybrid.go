package paginate

import (
	"context"
	"encoding/json"
)

// HybridFetch fetches one page either by page number (token empty) or
// by token (page ignored).
type HybridFetch func(ctx context.Context, pageNumber int, token string) (*Page, error)

// hybridLister starts with bounded-concurrency page-number fetches for
// early throughput, consuming them strictly in page order. That mode
// ends on the first short page or on reaching maxPage; if any
// continuation token has been seen by then, the lister switches to
// strict sequential token mode until exhausted. A short page with no
// token seen ends the listing outright.
type hybridLister struct {
	fetch    HybridFetch
	pageSize int
	workers  int
	maxPage  int

	nextPage  int
	inFlight  []chan offsetResult
	lastToken string
	tokenMode bool
	done      bool
}

// NewHybrid creates a hybrid page-number/token lister. maxPage is the
// backend's highest addressable page number.
func NewHybrid(fetch HybridFetch, pageSize, workers, maxPage int) Lister {
	if workers < 1 {
		workers = 1
	}
	return &hybridLister{
		fetch:    fetch,
		pageSize: pageSize,
		workers:  workers,
		maxPage:  maxPage,
		nextPage: 1,
	}
}

func (l *hybridLister) Next(ctx context.Context) ([]json.RawMessage, bool, error) {
	for !l.done {
		if err := ctx.Err(); err != nil && len(l.inFlight) == 0 {
			return nil, false, err
		}

		if l.tokenMode {
			page, err := l.fetch(ctx, 0, l.lastToken)
			if err != nil {
				l.done = true
				return nil, false, err
			}
			l.lastToken = page.NextToken
			if l.lastToken == "" {
				l.done = true
			}
			if len(page.Items) > 0 {
				return page.Items, true, nil
			}
			continue
		}

		for len(l.inFlight) < l.workers && l.nextPage <= l.maxPage {
			ch := make(chan offsetResult, 1)
			pageNo := l.nextPage
			l.nextPage++
			go func() {
				page, err := l.fetch(ctx, pageNo, "")
				ch <- offsetResult{page: page, err: err}
			}()
			l.inFlight = append(l.inFlight, ch)
		}
		if len(l.inFlight) == 0 {
			// Ran off the end of the addressable page range without a
			// short page; continue by token if one was ever seen.
			l.switchToToken()
			continue
		}

		consumedPage := l.nextPage - len(l.inFlight)
		res := l.inFlight[0]
		out := <-res
		l.inFlight = l.inFlight[1:]
		if out.err != nil {
			l.done = true
			l.drainInFlight()
			return nil, false, out.err
		}
		if out.page.NextToken != "" {
			l.lastToken = out.page.NextToken
		}
		short := len(out.page.Items) < l.pageSize
		atCutoff := consumedPage >= l.maxPage
		if short || atCutoff {
			l.drainInFlight()
			l.switchToToken()
		}
		if len(out.page.Items) > 0 {
			return out.page.Items, true, nil
		}
	}
	return nil, false, nil
}

// switchToToken leaves page-number mode. Without a token to continue
// from, the listing is over.
func (l *hybridLister) switchToToken() {
	if l.lastToken != "" {
		l.tokenMode = true
	} else {
		l.done = true
	}
}

func (l *hybridLister) drainInFlight() {
	for _, ch := range l.inFlight {
		<-ch
	}
	l.inFlight = nil
}
