// Package pagination provides offset arithmetic and parallel batch fetching
// for offset-paginated catalog endpoints.
//
// Catalog listings are addressed by limit/skip pairs. A 1-indexed page maps to
// an offset through CalculateSkip:
//
//	skip, err := pagination.CalculateSkip(3, 20) // 40
//
// Page numbers and limits below 1, and offsets that overflow an int, are
// rejected with ErrInvalidArgument; no negative or partial offset is ever
// produced.
//
// The BatchFetcher exports a whole collection:
//
//	fetcher := pagination.NewBatchFetcher[catalog.Product](store.PageSource(), pagination.DefaultConfig())
//	products, err := fetcher.FetchAll(ctx, "phone")
//
// It fetches the first page to learn the collection total, then distributes
// the remaining offsets across a bounded worker pool. Items come back in page
// order; when a worker fails the pages fetched so far are returned with the error.
package pagination
