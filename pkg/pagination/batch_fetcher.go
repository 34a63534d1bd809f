package pagination

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// PageSize is the limit used for every page
	PageSize int
	// Timeout per page fetch
	Timeout time.Duration
	// Buffer size for channels
	BufferSize int
}

// DefaultConfig returns a conservative configuration for public catalog APIs
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		PageSize:       20,
		Timeout:        15 * time.Second,
		BufferSize:     100,
	}
}

// PageFetcher fetches a single page and reports the collection total.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, req Request) (items []T, total int, err error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, req Request) ([]T, int, error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, req Request) ([]T, int, error) {
	return f(ctx, req)
}

// PageResult represents the result of fetching a single page
type PageResult[T any] struct {
	PageNumber int
	Items      []T
	Error      error
}

// BatchFetcher fetches every page of an offset-paginated collection in parallel
type BatchFetcher[T any] struct {
	fetcher PageFetcher[T]
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetcher PageFetcher[T], config Config) *BatchFetcher[T] {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page for the given search term and returns the items
// in page order. When a worker fails, the pages fetched so far are returned
// together with the error.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, search string) ([]T, error) {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	first := Request{Limit: bf.config.PageSize, Skip: 0, Search: search}
	firstItems, total, err := bf.fetcher.FetchPage(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	totalPages := TotalPages(total, bf.config.PageSize)

	log.Info().
		Str("search", search).
		Int("total", total).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	if totalPages <= 1 {
		log.Info().
			Str("search", search).
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return firstItems, nil
	}

	results := map[int][]T{1: firstItems}
	failures := map[int]error{}

	pageQueue := make(chan int, bf.config.BufferSize)
	pageResults := make(chan PageResult[T], bf.config.BufferSize)

	// Fill page queue (page 1 already fetched)
	go func() {
		defer close(pageQueue)
		for page := 2; page <= totalPages; page++ {
			select {
			case pageQueue <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, search, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	fetchedPages := 1
	for result := range pageResults {
		if result.Error != nil {
			failures[result.PageNumber] = result.Error
			continue
		}
		results[result.PageNumber] = result.Items
		fetchedPages++

		if fetchedPages%10 == 0 {
			log.Debug().
				Int("fetched", fetchedPages).
				Int("total", totalPages).
				Float64("progress_pct", float64(fetchedPages)/float64(totalPages)*100).
				Msg("Fetch progress")
		}
	}

	items := collect(results, totalPages)

	if len(failures) > 0 {
		missing := missingPages(results, totalPages)
		err := pageErrors(failures)
		log.Warn().
			Err(err).
			Ints("missing_pages", missing).
			Int("fetched_pages", fetchedPages).
			Int("total_pages", totalPages).
			Msg("Worker error - returning partial results")
		return items, fmt.Errorf("worker error (partial data: %d/%d pages, missing pages %v): %w",
			fetchedPages, totalPages, missing, err)
	}

	log.Info().
		Str("search", search).
		Int("pages", fetchedPages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

// collect flattens fetched pages in ascending page order, skipping gaps.
// Gaps are reported by missingPages.
func collect[T any](pages map[int][]T, totalPages int) []T {
	var items []T
	for page := 1; page <= totalPages; page++ {
		items = append(items, pages[page]...)
	}
	return items
}

// missingPages lists the page numbers absent from pages in ascending order.
func missingPages[T any](pages map[int][]T, totalPages int) []int {
	var missing []int
	for page := 1; page <= totalPages; page++ {
		if _, ok := pages[page]; !ok {
			missing = append(missing, page)
		}
	}
	return missing
}

// pageErrors joins per-page failures in ascending page order.
func pageErrors(failures map[int]error) error {
	pages := make([]int, 0, len(failures))
	for page := range failures {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	errs := make([]error, 0, len(pages))
	for _, page := range pages {
		errs = append(errs, fmt.Errorf("page %d: %w", page, failures[page]))
	}
	return errors.Join(errs...)
}

// worker processes pages from the queue. A failed page is reported on
// results and stops the worker.
func (bf *BatchFetcher[T]) worker(ctx context.Context, search string, pageQueue <-chan int, results chan<- PageResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		items, err := bf.fetchPage(ctx, pageNum, search)
		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")

			select {
			case results <- PageResult[T]{PageNumber: pageNum, Error: err}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case results <- PageResult[T]{PageNumber: pageNum, Items: items}:
		case <-ctx.Done():
			return
		}

		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}

func (bf *BatchFetcher[T]) fetchPage(ctx context.Context, pageNum int, search string) ([]T, error) {
	req, err := NewRequest(pageNum, bf.config.PageSize, search)
	if err != nil {
		return nil, err
	}

	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	items, _, err := bf.fetcher.FetchPage(pageCtx, req)
	return items, err
}
