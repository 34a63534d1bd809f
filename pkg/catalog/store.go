package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/product-catalog-client/pkg/client"
	"github.com/Sternrassler/product-catalog-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrInvalidConfig is returned by NewStore for an unusable configuration.
var ErrInvalidConfig = errors.New("invalid catalog config")

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_store_operations_total",
	Help: "Catalog store operations by operation and outcome",
}, []string{"operation", "outcome"})

// Fetcher is the fetch primitive the Store depends on. *client.Client
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, params client.Params) client.Result
}

// State is the lifecycle of a single Store call.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateHook observes state transitions. It is called synchronously with
// StateLoading when a request starts and with StateSuccess or StateFailed
// when it ends.
type StateHook func(State)

// Config holds the store configuration.
type Config struct {
	// BaseURI of the catalog API, e.g. https://dummyjson.com
	BaseURI string

	// Fetcher performs the HTTP requests (required)
	Fetcher Fetcher

	// Notifier receives one notification per failed request (default: LogNotifier)
	Notifier Notifier

	// StateHook is optional
	StateHook StateHook
}

// Store is the pagination controller. It holds no state between calls and
// is safe for concurrent use; overlapping calls run independently.
type Store struct {
	fetcher   Fetcher
	notifier  Notifier
	stateHook StateHook
	queries   QueryBuilder
	logger    zerolog.Logger
}

// NewStore creates a Store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.BaseURI == "" {
		return nil, fmt.Errorf("%w: base URI is required", ErrInvalidConfig)
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is required", ErrInvalidConfig)
	}

	logger := log.With().Str("component", "catalog-store").Logger()

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	return &Store{
		fetcher:   cfg.Fetcher,
		notifier:  notifier,
		stateHook: cfg.StateHook,
		queries:   NewQueryBuilder(cfg.BaseURI),
		logger:    logger,
	}, nil
}

// Query builds the query config for a search term.
func (s *Store) Query(search string) QueryConfig {
	return s.queries.Build(search)
}

// FetchPage fetches one page. The error is non-nil only when req is invalid.
// A failed request is notified and logged and yields a nil page, as does a
// successful response without a payload.
func (s *Store) FetchPage(ctx context.Context, cfg QueryConfig, req pagination.Request) (*PageResult, error) {
	page, _, err := s.TryFetchPage(ctx, cfg, req)
	return page, err
}

// TryFetchPage is FetchPage that also reports whether the request succeeded,
// telling a failed request apart from an empty payload. Failures are
// notified the same way.
func (s *Store) TryFetchPage(ctx context.Context, cfg QueryConfig, req pagination.Request) (*PageResult, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	page, err := s.run(ctx, cfg, req)
	if err != nil {
		operationsTotal.WithLabelValues("fetch_page", "failed").Inc()
		return nil, false, nil
	}

	operationsTotal.WithLabelValues("fetch_page", "success").Inc()
	return page, true, nil
}

// LoadMore fetches the page after currentPage. Invalid page or limit values
// are returned as pagination.ErrInvalidArgument before any request is made.
//
// HasMore reports whether the total exceeds the offset of the requested
// page. A failed request is notified and yields the advanced page number with
// no items and HasMore false.
func (s *Store) LoadMore(ctx context.Context, currentPage, limit int, search string) (LoadMoreResult, error) {
	result, _, err := s.loadMore(ctx, currentPage, limit, search)
	return result, err
}

// loadMore is LoadMore that also reports whether the request failed. The
// failure has already been notified.
func (s *Store) loadMore(ctx context.Context, currentPage, limit int, search string) (LoadMoreResult, bool, error) {
	newPage := currentPage + 1

	req, err := pagination.NewRequest(newPage, limit, search)
	if err != nil {
		return LoadMoreResult{}, false, err
	}

	result := LoadMoreResult{CurrentPage: newPage}

	page, err := s.run(ctx, s.queries.Build(search), req)
	if err != nil {
		operationsTotal.WithLabelValues("load_more", "failed").Inc()
		return result, true, nil
	}

	operationsTotal.WithLabelValues("load_more", "success").Inc()

	if page != nil {
		if len(page.Products) > 0 {
			result.Items = page.Products
		}
		result.HasMore = pagination.HasMore(page.Total, req.Skip)
	}

	return result, false, nil
}

// PageSource exposes the store's request pattern to a pagination.BatchFetcher.
// Unlike FetchPage it returns transport errors instead of notifying.
func (s *Store) PageSource() pagination.PageFetcher[Product] {
	return pagination.PageFetcherFunc[Product](func(ctx context.Context, req pagination.Request) ([]Product, int, error) {
		if err := req.Validate(); err != nil {
			return nil, 0, err
		}
		page, err := s.fetch(ctx, s.queries.Build(req.Search), req)
		if err != nil {
			return nil, 0, err
		}
		if page == nil {
			return nil, 0, nil
		}
		return page.Products, page.Total, nil
	})
}

// run wraps fetch with state reporting and failure handling.
func (s *Store) run(ctx context.Context, cfg QueryConfig, req pagination.Request) (*PageResult, error) {
	s.transition(StateLoading)

	page, err := s.fetch(ctx, cfg, req)
	if err != nil {
		s.fail(cfg, req, err)
		s.transition(StateFailed)
		return nil, err
	}

	s.transition(StateSuccess)
	return page, nil
}

// fetch issues the request and decodes the payload.
func (s *Store) fetch(ctx context.Context, cfg QueryConfig, req pagination.Request) (*PageResult, error) {
	result := s.fetcher.Fetch(ctx, cfg.URL, queryParams(cfg, req))
	if result.Err != nil {
		return nil, result.Err
	}
	if !result.HasData() {
		return nil, nil
	}

	var page PageResult
	if err := json.Unmarshal(result.Data, &page); err != nil {
		return nil, &client.TransportError{
			StatusCode: result.StatusCode,
			ErrorClass: client.ErrorClassDecode,
			Message:    "decode product page",
			Err:        err,
		}
	}

	return &page, nil
}

func queryParams(cfg QueryConfig, req pagination.Request) client.Params {
	params := client.Params{
		"limit":  req.Limit,
		"skip":   req.Skip,
		"select": cfg.FieldSelector,
	}
	if req.HasSearch() {
		params["q"] = req.Search
	}
	return params
}

func (s *Store) fail(cfg QueryConfig, req pagination.Request, err error) {
	s.notifier.Notify(FailureMessage, SeverityDestructive, RetryActionLabel)
	notificationsTotal.WithLabelValues(string(SeverityDestructive)).Inc()

	event := s.logger.Error().
		Err(err).
		Str("url", cfg.URL).
		Int("limit", req.Limit).
		Int("skip", req.Skip)

	var te *client.TransportError
	if errors.As(err, &te) {
		event = event.
			Str("error_class", string(te.ErrorClass)).
			Int("status", te.StatusCode)
	}

	event.Msg("Catalog request failed")
}

func (s *Store) transition(state State) {
	if s.stateHook != nil {
		s.stateHook(state)
	}
}
