package paginate

import (
	"context"
	"encoding/json"
)

// TokenFetch fetches one page. An empty token requests the first page.
type TokenFetch func(ctx context.Context, token string) (*Page, error)

// tokenLister is strictly serial: each response carries the token for
// the next request; an absent token ends the listing. Required where
// the backend does not guarantee stable results under concurrent
// offset reads.
type tokenLister struct {
	fetch TokenFetch
	token string
	done  bool
}

// NewToken creates a token-sequential lister.
func NewToken(fetch TokenFetch) Lister {
	return &tokenLister{fetch: fetch}
}

func (l *tokenLister) Next(ctx context.Context) ([]json.RawMessage, bool, error) {
	for !l.done {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		page, err := l.fetch(ctx, l.token)
		if err != nil {
			l.done = true
			return nil, false, err
		}
		l.token = page.NextToken
		if l.token == "" {
			l.done = true
		}
		if len(page.Items) > 0 {
			return page.Items, true, nil
		}
	}
	return nil, false, nil
}
