package paginate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkItems builds n raw items labeled with the given prefix.
func mkItems(prefix string, n int) []json.RawMessage {
	items := make([]json.RawMessage, n)
	for i := range items {
		items[i] = json.RawMessage(fmt.Sprintf(`{"id":"%s-%d"}`, prefix, i))
	}
	return items
}

// collect drains a lister completely.
func collect(t *testing.T, l Lister) [][]json.RawMessage {
	t.Helper()
	var batches [][]json.RawMessage
	for {
		items, ok, err := l.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return batches
		}
		batches = append(batches, items)
	}
}

func TestOffsetConsumesInOrder(t *testing.T) {
	// 5 full pages then a short one; fetches record their order of
	// arrival but consumption must follow offsets.
	const pageSize = 10
	pages := map[int]int{0: 10, 10: 10, 20: 10, 30: 10, 40: 10, 50: 3}

	var mu sync.Mutex
	var fetched []int
	fetch := func(_ context.Context, offset, limit int) (*Page, error) {
		mu.Lock()
		fetched = append(fetched, offset)
		mu.Unlock()
		n, known := pages[offset]
		if !known {
			n = 0
		}
		return &Page{Items: mkItems(fmt.Sprintf("o%d", offset), n)}, nil
	}

	l := NewOffset(fetch, pageSize, 3)
	batches := collect(t, l)

	require.Len(t, batches, 6)
	for i, batch := range batches {
		var first struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(batch[0], &first))
		assert.Equal(t, fmt.Sprintf("o%d-0", i*pageSize), first.ID, "batch %d out of offset order", i)
	}
	assert.Equal(t, 53, totalItems(batches))
}

func TestOffsetStopsOnShortPage(t *testing.T) {
	var mu sync.Mutex
	maxOffset := 0
	fetch := func(_ context.Context, offset, limit int) (*Page, error) {
		mu.Lock()
		if offset > maxOffset {
			maxOffset = offset
		}
		mu.Unlock()
		if offset == 0 {
			return &Page{Items: mkItems("p", 4)}, nil // short first page
		}
		return &Page{}, nil
	}

	l := NewOffset(fetch, 10, 4)
	batches := collect(t, l)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 4)
	// Prefetch may have run ahead, but never past the window.
	assert.LessOrEqual(t, maxOffset, 30)
}

func TestOffsetPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(_ context.Context, offset, limit int) (*Page, error) {
		if offset >= 20 {
			return nil, boom
		}
		return &Page{Items: mkItems("p", limit)}, nil
	}

	l := NewOffset(fetch, 10, 2)
	var seen int
	for {
		items, ok, err := l.Next(context.Background())
		if err != nil {
			assert.ErrorIs(t, err, boom)
			break
		}
		require.True(t, ok)
		seen += len(items)
	}
	assert.Equal(t, 20, seen)
}

func TestTokenSequential(t *testing.T) {
	pages := map[string]*Page{
		"":   {Items: mkItems("a", 3), NextToken: "t1"},
		"t1": {Items: mkItems("b", 3), NextToken: "t2"},
		"t2": {Items: mkItems("c", 1)},
	}
	var order []string
	fetch := func(_ context.Context, token string) (*Page, error) {
		order = append(order, token)
		p, ok := pages[token]
		require.True(t, ok, "unexpected token %q", token)
		return p, nil
	}

	batches := collect(t, NewToken(fetch))
	assert.Equal(t, []string{"", "t1", "t2"}, order)
	assert.Equal(t, 7, totalItems(batches))
}

func TestTokenSkipsEmptyPages(t *testing.T) {
	pages := map[string]*Page{
		"":   {NextToken: "t1"},
		"t1": {Items: mkItems("b", 2)},
	}
	fetch := func(_ context.Context, token string) (*Page, error) {
		return pages[token], nil
	}
	batches := collect(t, NewToken(fetch))
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}

func TestHybridShortPageWithoutTokenStops(t *testing.T) {
	// Full pages 1-3, short page 4: yields exactly pages 1-4 and stops
	// without ever issuing a token-mode fetch.
	const pageSize = 10
	var mu sync.Mutex
	tokenFetches := 0
	fetch := func(_ context.Context, pageNumber int, token string) (*Page, error) {
		mu.Lock()
		defer mu.Unlock()
		if token != "" {
			tokenFetches++
			return &Page{}, nil
		}
		switch {
		case pageNumber <= 3:
			return &Page{Items: mkItems(fmt.Sprintf("pg%d", pageNumber), pageSize)}, nil
		case pageNumber == 4:
			return &Page{Items: mkItems("pg4", 2)}, nil
		default:
			return &Page{}, nil
		}
	}

	batches := collect(t, NewHybrid(fetch, pageSize, 3, 95))
	require.Len(t, batches, 4)
	assert.Equal(t, 32, totalItems(batches))
	assert.Zero(t, tokenFetches, "must not fall back to token mode")
}

func TestHybridContinuesByTokenAfterCutoff(t *testing.T) {
	// Every numbered page up to the cutoff is full; the listing
	// continues from the last token seen.
	const pageSize = 2
	const maxPage = 3
	fetch := func(_ context.Context, pageNumber int, token string) (*Page, error) {
		if token != "" {
			switch token {
			case "tok-3":
				return &Page{Items: mkItems("t1", 2), NextToken: "tok-4"}, nil
			case "tok-4":
				return &Page{Items: mkItems("t2", 1)}, nil
			}
			return &Page{}, nil
		}
		return &Page{
			Items:     mkItems(fmt.Sprintf("pg%d", pageNumber), pageSize),
			NextToken: fmt.Sprintf("tok-%d", pageNumber),
		}, nil
	}

	batches := collect(t, NewHybrid(fetch, pageSize, 2, maxPage))
	// 3 numbered pages + 2 token pages.
	require.Len(t, batches, 5)
	assert.Equal(t, 9, totalItems(batches))
}

func TestHybridShortPageWithTokenSwitchesModes(t *testing.T) {
	const pageSize = 5
	fetch := func(_ context.Context, pageNumber int, token string) (*Page, error) {
		if token == "continue" {
			return &Page{Items: mkItems("tail", 3)}, nil
		}
		if pageNumber == 1 {
			return &Page{Items: mkItems("pg1", 2), NextToken: "continue"}, nil
		}
		return &Page{}, nil
	}

	batches := collect(t, NewHybrid(fetch, pageSize, 2, 95))
	require.Len(t, batches, 2)
	assert.Equal(t, 5, totalItems(batches))
}

func TestLinkFollowing(t *testing.T) {
	pages := map[string]*Page{
		"/feed/things":        {Items: mkItems("a", 2), NextLink: "/feed/things?page=2"},
		"/feed/things?page=2": {Items: mkItems("b", 2), NextLink: "/feed/things?page=3"},
		"/feed/things?page=3": {Items: mkItems("c", 1)},
	}
	var visited []string
	fetch := func(_ context.Context, link string) (*Page, error) {
		visited = append(visited, link)
		p, ok := pages[link]
		require.True(t, ok, "unexpected link %q", link)
		return p, nil
	}

	batches := collect(t, NewLink(fetch, "/feed/things"))
	assert.Len(t, visited, 3)
	assert.Equal(t, 5, totalItems(batches))
}

func TestSequenceChainsListers(t *testing.T) {
	first := NewToken(func(_ context.Context, token string) (*Page, error) {
		return &Page{Items: mkItems("x", 2)}, nil
	})
	second := NewToken(func(_ context.Context, token string) (*Page, error) {
		return &Page{Items: mkItems("y", 3)}, nil
	})

	batches := collect(t, NewSequence(first, second))
	require.Len(t, batches, 2)
	assert.Equal(t, 5, totalItems(batches))
}

func TestListersAreRestartableFromScratch(t *testing.T) {
	mk := func() Lister {
		return NewToken(func(_ context.Context, token string) (*Page, error) {
			if token == "" {
				return &Page{Items: mkItems("a", 2), NextToken: "t"}, nil
			}
			return &Page{Items: mkItems("b", 1)}, nil
		})
	}
	// Two independent runs over the same backend must not interleave
	// and must produce identical results.
	run1 := collect(t, mk())
	run2 := collect(t, mk())
	assert.Equal(t, run1, run2)
}

func totalItems(batches [][]json.RawMessage) int {
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	return n
}
