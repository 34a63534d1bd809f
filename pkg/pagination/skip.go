package pagination

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument is returned when a page number, limit or offset is out of range.
var ErrInvalidArgument = errors.New("invalid argument")

// Request holds the parameters for a single page request.
type Request struct {
	// Limit is the page size (must be >= 1)
	Limit int

	// Skip is the record offset (must be >= 0)
	Skip int

	// Search is an optional search term; empty means no search
	Search string
}

// Validate checks that the request describes a reachable page.
func (r Request) Validate() error {
	if r.Limit < 1 {
		return fmt.Errorf("%w: limit must be >= 1 (got %d)", ErrInvalidArgument, r.Limit)
	}
	if r.Skip < 0 {
		return fmt.Errorf("%w: skip must be >= 0 (got %d)", ErrInvalidArgument, r.Skip)
	}
	return nil
}

// HasSearch reports whether the request carries a search term.
func (r Request) HasSearch() bool {
	return r.Search != ""
}

// NewRequest builds a Request for a 1-indexed page number.
func NewRequest(page, limit int, search string) (Request, error) {
	skip, err := CalculateSkip(page, limit)
	if err != nil {
		return Request{}, err
	}
	return Request{Limit: limit, Skip: skip, Search: search}, nil
}

// CalculateSkip returns the record offset of a 1-indexed page.
// Both page and limit must be positive and the offset must fit in an int.
func CalculateSkip(page, limit int) (int, error) {
	if page < 1 || limit < 1 {
		return 0, fmt.Errorf("%w: page and limit must be positive numbers (page=%d, limit=%d)",
			ErrInvalidArgument, page, limit)
	}
	if page-1 > math.MaxInt/limit {
		return 0, fmt.Errorf("%w: offset of page %d with limit %d overflows", ErrInvalidArgument, page, limit)
	}
	return (page - 1) * limit, nil
}

// HasMore reports whether records exist beyond the given offset.
func HasMore(total, skip int) bool {
	return total > skip
}

// TotalPages returns the number of pages needed to hold total records.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
