// Package catalog is the product catalog data layer: it builds listing and
// search queries, fetches pages through a client.Client, reports failures to
// a Notifier and derives incremental-load state for infinite scrolling.
//
// # Fetching a page
//
//	store, err := catalog.NewStore(catalog.Config{
//	    BaseURI: "https://dummyjson.com",
//	    Fetcher: httpClient,
//	})
//	req, _ := pagination.NewRequest(1, 20, "iphone")
//	page, err := store.FetchPage(ctx, store.Query("iphone"), req)
//	// page == nil: the request failed (already notified) or the server sent nothing
//
// # Loading more
//
//	more, err := store.LoadMore(ctx, currentPage, 20, search)
//	// err != nil only for invalid page/limit; transport failures are notified
//	// and come back as {CurrentPage: next, Items: nil, HasMore: false}
//
// The Store keeps no state between calls. Callers that accumulate results
// across pages own a Session.
package catalog
