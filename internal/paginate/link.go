package paginate

import (
	"context"
	"encoding/json"
)

// LinkFetch fetches the page at the given path or absolute URL.
type LinkFetch func(ctx context.Context, link string) (*Page, error)

// linkLister follows the next-page link each response embeds in its
// metadata envelope. Links may be absolute or relative; resolution
// against the base URL is the transport's job.
type linkLister struct {
	fetch LinkFetch
	next  string
	done  bool
}

// NewLink creates a link-following lister starting at the given path.
func NewLink(fetch LinkFetch, start string) Lister {
	return &linkLister{fetch: fetch, next: start}
}

func (l *linkLister) Next(ctx context.Context) ([]json.RawMessage, bool, error) {
	for !l.done {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		page, err := l.fetch(ctx, l.next)
		if err != nil {
			l.done = true
			return nil, false, err
		}
		l.next = page.NextLink
		if l.next == "" {
			l.done = true
		}
		if len(page.Items) > 0 {
			return page.Items, true, nil
		}
	}
	return nil, false, nil
}
