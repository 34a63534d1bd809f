package catalog

import "context"

// LoadMoreFunc loads the page after currentPage. Store.LoadMore bound to a
// search term satisfies it.
type LoadMoreFunc func(ctx context.Context, currentPage, limit int) (LoadMoreResult, error)

// ScrollResult is what a scroll handler needs to render the next step.
type ScrollResult struct {
	PageNumber int
	HasMore    bool
	Items      []Product
}

// HandleInfiniteScroll runs one scroll-triggered load. Items is set only when
// the load returned products.
func HandleInfiniteScroll(ctx context.Context, currentPage, limit int, loadMore LoadMoreFunc) (ScrollResult, error) {
	result, err := loadMore(ctx, currentPage, limit)
	if err != nil {
		return ScrollResult{}, err
	}

	scroll := ScrollResult{
		PageNumber: result.CurrentPage,
		HasMore:    result.HasMore,
	}
	if len(result.Items) > 0 {
		scroll.Items = result.Items
	}

	return scroll, nil
}

// LoadMoreFor binds Store.LoadMore to a search term.
func (s *Store) LoadMoreFor(search string) LoadMoreFunc {
	return func(ctx context.Context, currentPage, limit int) (LoadMoreResult, error) {
		return s.LoadMore(ctx, currentPage, limit, search)
	}
}
