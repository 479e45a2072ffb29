// Package paginate implements the listing strategies the purge engine
// drives: offset-parallel, token-sequential, hybrid page-number/token,
// and link-following. Each strategy is a restartable, finite producer
// of item batches in a deterministic order.
package paginate

import (
	"context"
	"encoding/json"
)

// Page is one page of raw listing results plus whatever continuation
// state the response carried. A strategy consumes exactly one of the
// continuation fields.
type Page struct {
	Items     []json.RawMessage
	NextToken string
	NextLink  string
}

// Lister yields batches of raw listing entries. Next returns ok=false
// once the listing is exhausted. Cancellation is honored between pages
// only; a page fetch in flight always drains.
type Lister interface {
	Next(ctx context.Context) (items []json.RawMessage, ok bool, err error)
}

// sequence runs several listers back to back. Used for kinds that need
// more than one scan of the backend (e.g. active then archived assets);
// the engine's dedup set absorbs any overlap between scans.
type sequence struct {
	listers []Lister
	idx     int
}

// NewSequence chains listers into one exhaustive listing.
func NewSequence(listers ...Lister) Lister {
	return &sequence{listers: listers}
}

func (s *sequence) Next(ctx context.Context) ([]json.RawMessage, bool, error) {
	for s.idx < len(s.listers) {
		items, ok, err := s.listers[s.idx].Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return items, true, nil
		}
		s.idx++
	}
	return nil, false, nil
}
