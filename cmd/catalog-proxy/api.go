package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/product-catalog-client/internal/config"
	"github.com/Sternrassler/product-catalog-client/pkg/catalog"
	"github.com/Sternrassler/product-catalog-client/pkg/client"
	"github.com/Sternrassler/product-catalog-client/pkg/logging"
	"github.com/Sternrassler/product-catalog-client/pkg/metrics"
	"github.com/Sternrassler/product-catalog-client/pkg/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

const (
	headerRequestID = "X-Request-ID"
	maxPageSize     = 100
)

type ctxKey struct{}

type pageQuery struct {
	Page   int    `validate:"min=1"`
	Limit  int    `validate:"min=1,max=100"`
	Search string `validate:"max=100"`
}

type moreQuery struct {
	CurrentPage int    `validate:"min=0"`
	Limit       int    `validate:"min=1,max=100"`
	Search      string `validate:"max=100"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
}

// api holds the HTTP handlers.
type api struct {
	store    *catalog.Store
	client   *client.Client
	redis    *redis.Client
	validate *validator.Validate
	pageSize int
}

func newAPI(cfg *config.Config, store *catalog.Store, c *client.Client, rdb *redis.Client) *api {
	pageSize := cfg.PageSize
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &api{
		store:    store,
		client:   c,
		redis:    rdb,
		validate: validator.New(),
		pageSize: pageSize,
	}
}

func (a *api) routes(allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(requestID)

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ready", a.readyHandler).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	products := r.PathPrefix("/api/products").Subrouter()
	products.HandleFunc("", a.productsHandler).Methods(http.MethodGet)
	products.HandleFunc("/more", a.loadMoreHandler).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", headerRequestID},
		ExposedHeaders: []string{headerRequestID},
	})
	return c.Handler(r)
}

// requestID tags each request with an X-Request-ID, reusing the caller's.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (a *api) readyHandler(w http.ResponseWriter, r *http.Request) {
	if !a.client.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "catalog circuit breaker open"})
		return
	}

	if a.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "redis unavailable"})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "READY")
}

// productsHandler serves GET /api/products?page=&limit=&q=.
func (a *api) productsHandler(w http.ResponseWriter, r *http.Request) {
	logger := logging.NewRequestLogger(serviceName, requestIDFrom(r.Context()))
	query := r.URL.Query()

	q := pageQuery{Search: query.Get("q")}
	var err error
	if q.Page, err = intQuery(query.Get("page"), 1); err == nil {
		q.Limit, err = intQuery(query.Get("limit"), a.pageSize)
	}
	if err == nil {
		err = a.validate.Struct(q)
	}
	if err != nil {
		badRequest(w, err)
		return
	}

	req, err := pagination.NewRequest(q.Page, q.Limit, q.Search)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	page, ok, err := a.store.TryFetchPage(r.Context(), a.store.Query(q.Search), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if !ok {
		logger.Warn().Int("page", q.Page).Str("q", q.Search).Msg("No catalog page available")
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:  catalog.FailureMessage,
			Action: catalog.RetryActionLabel,
		})
		return
	}
	if page == nil {
		page = &catalog.PageResult{Products: []catalog.Product{}, Skip: req.Skip, Limit: req.Limit}
	}

	logger.Debug().Int("page", q.Page).Int("items", len(page.Products)).Msg("Served catalog page")
	writeJSON(w, http.StatusOK, page)
}

// loadMoreHandler serves GET /api/products/more?current_page=&limit=&q=.
func (a *api) loadMoreHandler(w http.ResponseWriter, r *http.Request) {
	logger := logging.NewRequestLogger(serviceName, requestIDFrom(r.Context()))
	query := r.URL.Query()

	q := moreQuery{Search: query.Get("q")}
	var err error
	if q.CurrentPage, err = intQuery(query.Get("current_page"), 1); err == nil {
		q.Limit, err = intQuery(query.Get("limit"), a.pageSize)
	}
	if err == nil {
		err = a.validate.Struct(q)
	}
	if err != nil {
		badRequest(w, err)
		return
	}

	result, err := a.store.LoadMore(r.Context(), q.CurrentPage, q.Limit, q.Search)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pagination.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	logger.Debug().
		Int("page", result.CurrentPage).
		Int("items", len(result.Items)).
		Bool("has_more", result.HasMore).
		Msg("Served next catalog page")
	writeJSON(w, http.StatusOK, result)
}

// badRequest writes a 400, spelling out validator failures per field.
func badRequest(w http.ResponseWriter, err error) {
	msg := err.Error()

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			switch fieldError.Tag() {
			case "min":
				details = append(details, fmt.Sprintf("%s must be at least %s", queryName(fieldError.Field()), fieldError.Param()))
			case "max":
				details = append(details, fmt.Sprintf("%s must be at most %s", queryName(fieldError.Field()), fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s failed validation: %s", queryName(fieldError.Field()), fieldError.Tag()))
			}
		}
		msg = strings.Join(details, "; ")
	}

	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func queryName(field string) string {
	switch field {
	case "CurrentPage":
		return "current_page"
	case "Search":
		return "q"
	default:
		return strings.ToLower(field)
	}
}

func intQuery(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", value)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := logging.NewLogger(serviceName)
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}
