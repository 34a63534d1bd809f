package catalog

import "github.com/shopspring/decimal"

// Product is one catalog record restricted to the selected fields.
type Product struct {
	ID     int             `json:"id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
	Images []string        `json:"images"`
}

// PageResult is a page as returned by the catalog API.
type PageResult struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// LoadMoreResult is the outcome of loading the page after CurrentPage-1.
// Items is nil when the request failed or the server returned no products.
type LoadMoreResult struct {
	CurrentPage int       `json:"currentPage"`
	Items       []Product `json:"items"`
	HasMore     bool      `json:"hasMore"`
}
