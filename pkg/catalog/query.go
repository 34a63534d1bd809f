package catalog

import "strings"

// FieldSelector restricts the record attributes the server returns.
const FieldSelector = "title,price,images"

const (
	listingPath = "/products"
	searchPath  = "/search"
)

// QueryConfig is the endpoint and field selector for one request.
type QueryConfig struct {
	URL           string
	FieldSelector string
}

// QueryBuilder derives request endpoints from a fixed base URI.
type QueryBuilder struct {
	listingURL string
}

// NewQueryBuilder returns a builder for baseURI.
func NewQueryBuilder(baseURI string) QueryBuilder {
	return QueryBuilder{listingURL: strings.TrimRight(baseURI, "/") + listingPath}
}

// ListingURL returns the non-search endpoint.
func (b QueryBuilder) ListingURL() string {
	return b.listingURL
}

// Build returns the listing endpoint, or the search endpoint when search is
// non-empty.
func (b QueryBuilder) Build(search string) QueryConfig {
	url := b.listingURL
	if search != "" {
		url += searchPath
	}
	return QueryConfig{URL: url, FieldSelector: FieldSelector}
}
