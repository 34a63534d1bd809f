package catalog

import (
	"context"
	"sync"

	"github.com/Sternrassler/product-catalog-client/pkg/pagination"
)

// Session accumulates the products of one search context across pages.
// Loads are serialized, so page N+1 is requested only after page N is known.
type Session struct {
	mu sync.Mutex

	search      string
	pageSize    int
	currentPage int
	total       int
	hasMore     bool
	products    []Product
}

// SessionSnapshot is a point-in-time copy of a Session.
type SessionSnapshot struct {
	Products    []Product `json:"products"`
	CurrentPage int       `json:"currentPage"`
	PageSize    int       `json:"pageSize"`
	Total       int       `json:"total"`
	Skip        int       `json:"skip"`
	Search      string    `json:"search"`
	HasMore     bool      `json:"hasMore"`
}

// NewSession creates an empty session with the given page size.
func NewSession(pageSize int) *Session {
	return &Session{pageSize: pageSize}
}

// Reset discards accumulated products and switches to a new search term.
func (s *Session) Reset(search string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.search = search
	s.currentPage = 0
	s.total = 0
	s.hasMore = false
	s.products = nil
}

// LoadFirst replaces the session contents with page 1.
func (s *Session) LoadFirst(ctx context.Context, store *Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := pagination.NewRequest(1, s.pageSize, s.search)
	if err != nil {
		return err
	}

	page, err := store.FetchPage(ctx, store.Query(s.search), req)
	if err != nil {
		return err
	}

	s.currentPage = 1
	s.products = nil
	s.total = 0
	s.hasMore = false
	if page != nil {
		s.products = append(s.products, page.Products...)
		s.total = page.Total
		s.hasMore = pagination.HasMore(page.Total, s.pageSize)
	}

	return nil
}

// LoadNext loads the following page and appends its items. A failed load
// leaves the session on its current page, so the next call retries the same
// offset.
func (s *Session) LoadNext(ctx context.Context, store *Store) (LoadMoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, failed, err := store.loadMore(ctx, s.currentPage, s.pageSize, s.search)
	if err != nil {
		return result, err
	}
	if failed {
		s.hasMore = false
		return result, nil
	}

	s.currentPage = result.CurrentPage
	s.products = append(s.products, result.Items...)
	s.hasMore = result.HasMore

	return result, nil
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]Product, len(s.products))
	copy(products, s.products)

	skip := 0
	if s.currentPage > 0 {
		skip = (s.currentPage - 1) * s.pageSize
	}

	return SessionSnapshot{
		Products:    products,
		CurrentPage: s.currentPage,
		PageSize:    s.pageSize,
		Total:       s.total,
		Skip:        skip,
		Search:      s.search,
		HasMore:     s.hasMore,
	}
}
