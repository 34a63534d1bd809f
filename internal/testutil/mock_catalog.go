// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockProduct is a product record served by MockCatalog.
type MockProduct struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Images      []string `json:"images"`
}

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a configurable DummyJSON-style catalog server.
// GET /products and GET /products/search honour limit, skip, select and q.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	products []MockProduct

	requestCount      int
	lastPath          string
	lastQuery         url.Values
	lastRequestHeader http.Header
}

// NewMockCatalog starts a mock catalog serving DefaultProducts.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers: make(map[string]http.HandlerFunc),
		products: DefaultProducts(),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastPath = r.URL.Path
		mock.lastQuery = r.URL.Query()
		mock.lastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears tracking state and custom handlers.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.lastPath = ""
	m.lastQuery = nil
	m.lastRequestHeader = nil
	m.handlers = make(map[string]http.HandlerFunc)
}

// SetProducts replaces the served collection.
func (m *MockCatalog) SetProducts(products []MockProduct) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = products
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests served.
func (m *MockCatalog) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// LastPath returns the path of the most recent request.
func (m *MockCatalog) LastPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastPath
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockCatalog) LastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockCatalog) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/products", "/products/search":
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"Route GET:%s not found"}`, r.URL.Path)
		return
	}

	query := r.URL.Query()
	limit := intParam(query, "limit", 30)
	skip := intParam(query, "skip", 0)

	m.mu.RLock()
	matched := filterProducts(m.products, query.Get("q"))
	m.mu.RUnlock()

	total := len(matched)
	page := []MockProduct{}
	if skip < total {
		end := skip + limit
		if end > total {
			end = total
		}
		page = matched[skip:end]
	}

	fields := selectFields(query.Get("select"))
	records := make([]map[string]any, 0, len(page))
	for _, p := range page {
		records = append(records, project(p, fields))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"products": records,
		"total":    total,
		"skip":     skip,
		"limit":    limit,
	})
}

func intParam(query url.Values, key string, fallback int) int {
	if v, err := strconv.Atoi(query.Get(key)); err == nil {
		return v
	}
	return fallback
}

func filterProducts(products []MockProduct, q string) []MockProduct {
	if q == "" {
		return products
	}
	q = strings.ToLower(q)
	var matched []MockProduct
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Description), q) {
			matched = append(matched, p)
		}
	}
	return matched
}

func selectFields(selectParam string) map[string]bool {
	if selectParam == "" {
		return nil
	}
	fields := map[string]bool{"id": true}
	for _, f := range strings.Split(selectParam, ",") {
		fields[strings.TrimSpace(f)] = true
	}
	return fields
}

func project(p MockProduct, fields map[string]bool) map[string]any {
	all := map[string]any{
		"id":          p.ID,
		"title":       p.Title,
		"description": p.Description,
		"category":    p.Category,
		"price":       p.Price,
		"images":      p.Images,
	}
	if fields == nil {
		return all
	}
	out := make(map[string]any, len(fields))
	for k := range fields {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out
}

// DefaultProducts returns two iPhones followed by 28 generic products.
func DefaultProducts() []MockProduct {
	products := []MockProduct{
		{
			ID:          1,
			Title:       "iPhone 9",
			Description: "An apple mobile which is nothing like apple",
			Category:    "smartphones",
			Price:       549,
			Images: []string{
				"https://cdn.dummyjson.com/product-images/1/1.jpg",
				"https://cdn.dummyjson.com/product-images/1/thumbnail.jpg",
			},
		},
		{
			ID:          2,
			Title:       "iPhone X",
			Description: "SIM-Free, Model A19211 6.5-inch Super Retina HD display",
			Category:    "smartphones",
			Price:       899,
			Images: []string{
				"https://cdn.dummyjson.com/product-images/2/1.jpg",
				"https://cdn.dummyjson.com/product-images/2/thumbnail.jpg",
			},
		},
	}
	return append(products, GenerateProducts(3, 28)...)
}

// GenerateProducts returns n generic products with IDs starting at firstID.
func GenerateProducts(firstID, n int) []MockProduct {
	products := make([]MockProduct, 0, n)
	for i := 0; i < n; i++ {
		id := firstID + i
		products = append(products, MockProduct{
			ID:          id,
			Title:       fmt.Sprintf("Product %d", id),
			Description: fmt.Sprintf("Generic catalog item %d", id),
			Category:    "misc",
			Price:       float64(id*10) + 0.99,
			Images:      []string{fmt.Sprintf("https://cdn.example.com/product-images/%d/1.jpg", id)},
		})
	}
	return products
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>maintenance</html>`,
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}

// NewQuotaResponse creates a 200 response carrying rate limit headers.
func NewQuotaResponse(body string, remaining, resetSeconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":          "application/json",
			"X-RateLimit-Remaining": strconv.Itoa(remaining),
			"X-RateLimit-Reset":     strconv.Itoa(resetSeconds),
		},
	}
}

// NewTooManyRequestsResponse creates a 429 response.
func NewTooManyRequestsResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Too many requests"}`,
		Headers: map[string]string{
			"Content-Type":          "application/json",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "30",
		},
	}
}
