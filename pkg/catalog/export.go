package catalog

import (
	"context"

	"github.com/Sternrassler/product-catalog-client/pkg/pagination"
)

// ExportAll fetches every product matching search with a bounded number of
// parallel page requests. Products come back in catalog order. On failure
// the products fetched so far are returned with the error; nothing is
// notified.
func (s *Store) ExportAll(ctx context.Context, search string, cfg pagination.Config) ([]Product, error) {
	return pagination.NewBatchFetcher(s.PageSource(), cfg).FetchAll(ctx, search)
}
