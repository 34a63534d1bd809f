package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Sternrassler/product-catalog-client/internal/testutil"
	"github.com/Sternrassler/product-catalog-client/pkg/client"
	"github.com/Sternrassler/product-catalog-client/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const twoIPhones = `{
	"products": [
		{"id": 1, "title": "iPhone 9", "price": 549, "images": ["https://cdn.dummyjson.com/product-images/1/1.jpg"]},
		{"id": 2, "title": "iPhone X", "price": 899.99, "images": []}
	],
	"total": 2,
	"skip": 20,
	"limit": 20
}`

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(Config{Fetcher: &MockFetcher{}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore(Config{BaseURI: "https://dummyjson.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	store, err := NewStore(Config{BaseURI: "https://dummyjson.com", Fetcher: &MockFetcher{}})
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, store.notifier)
}

func TestStore_FetchPage_Params(t *testing.T) {
	tests := []struct {
		name       string
		search     string
		wantURL    string
		wantParams client.Params
	}{
		{
			name:    "without search",
			search:  "",
			wantURL: "https://catalog.test/products",
			wantParams: client.Params{
				"limit":  20,
				"skip":   40,
				"select": "title,price,images",
			},
		},
		{
			name:    "with search",
			search:  "iphone",
			wantURL: "https://catalog.test/products/search",
			wantParams: client.Params{
				"limit":  20,
				"skip":   40,
				"select": "title,price,images",
				"q":      "iphone",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &MockFetcher{}
			fetcher.On("Fetch", mock.Anything, tt.wantURL, tt.wantParams).Return(ok(twoIPhones)).Once()

			store := newTestStore(t, fetcher, NopNotifier{}, nil)
			req := pagination.Request{Limit: 20, Skip: 40, Search: tt.search}

			page, err := store.FetchPage(context.Background(), store.Query(tt.search), req)

			require.NoError(t, err)
			require.NotNil(t, page)
			fetcher.AssertExpectations(t)

			params := fetcher.Calls[0].Arguments.Get(2).(client.Params)
			_, hasQ := params["q"]
			assert.Equal(t, tt.search != "", hasQ, "q must be sent only with a search term")
		})
	}
}

func TestStore_FetchPage_Success(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(ok(twoIPhones))
	notifier := &MockNotifier{}

	store := newTestStore(t, fetcher, notifier, nil)
	page, err := store.FetchPage(context.Background(), store.Query("iphone"), pagination.Request{Limit: 20, Skip: 20, Search: "iphone"})

	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 20, page.Skip)
	assert.Equal(t, 20, page.Limit)
	require.Len(t, page.Products, 2)
	assert.Equal(t, 1, page.Products[0].ID)
	assert.Equal(t, "iPhone 9", page.Products[0].Title)
	assert.True(t, page.Products[0].Price.Equal(decimal.NewFromInt(549)))
	assert.True(t, page.Products[1].Price.Equal(decimal.RequireFromString("899.99")))
	assert.Equal(t, []string{"https://cdn.dummyjson.com/product-images/1/1.jpg"}, page.Products[0].Images)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_TryFetchPage_SeparatesFailureFromEmptyPayload(t *testing.T) {
	tests := []struct {
		name       string
		result     client.Result
		wantOK     bool
		wantNotify int
	}{
		{name: "null payload", result: ok("null"), wantOK: true, wantNotify: 0},
		{name: "empty body", result: client.Result{StatusCode: 204}, wantOK: true, wantNotify: 0},
		{name: "server failure", result: transportFailure(client.ErrorClassServer, 500), wantOK: false, wantNotify: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &MockFetcher{}
			fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(tt.result)
			notifier := &MockNotifier{}
			notifier.On("Notify", FailureMessage, SeverityDestructive, RetryActionLabel).Return()

			store := newTestStore(t, fetcher, notifier, nil)
			page, gotOK, err := store.TryFetchPage(context.Background(), store.Query(""), pagination.Request{Limit: 20})

			require.NoError(t, err)
			assert.Nil(t, page)
			assert.Equal(t, tt.wantOK, gotOK)
			notifier.AssertNumberOfCalls(t, "Notify", tt.wantNotify)
		})
	}
}

func TestStore_FetchPage_TransportFailureNotifiesOnce(t *testing.T) {
	classes := []struct {
		class  client.ErrorClass
		status int
	}{
		{client.ErrorClassNetwork, 0},
		{client.ErrorClassServer, 500},
		{client.ErrorClassClient, 404},
		{client.ErrorClassDecode, 200},
		{client.ErrorClassCircuitOpen, 0},
		{client.ErrorClassCanceled, 0},
	}

	for _, tc := range classes {
		t.Run(string(tc.class), func(t *testing.T) {
			fetcher := &MockFetcher{}
			fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(transportFailure(tc.class, tc.status))

			notifier := &MockNotifier{}
			notifier.On("Notify", FailureMessage, SeverityDestructive, RetryActionLabel).Return().Once()

			store := newTestStore(t, fetcher, notifier, nil)
			page, err := store.FetchPage(context.Background(), store.Query(""), pagination.Request{Limit: 20})

			assert.NoError(t, err)
			assert.Nil(t, page)
			notifier.AssertExpectations(t)
			notifier.AssertNumberOfCalls(t, "Notify", 1)
		})
	}
}

func TestStore_FetchPage_EmptyPayload(t *testing.T) {
	for _, body := range []string{"", "null"} {
		fetcher := &MockFetcher{}
		fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(ok(body))
		notifier := &MockNotifier{}

		store := newTestStore(t, fetcher, notifier, nil)
		page, err := store.FetchPage(context.Background(), store.Query(""), pagination.Request{Limit: 20})

		assert.NoError(t, err)
		assert.Nil(t, page, "body %q", body)
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestStore_FetchPage_UndecodablePayload(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(ok(`{"products": "nope"}`))
	notifier := &MockNotifier{}
	notifier.On("Notify", FailureMessage, SeverityDestructive, RetryActionLabel).Return()

	store := newTestStore(t, fetcher, notifier, nil)
	page, err := store.FetchPage(context.Background(), store.Query(""), pagination.Request{Limit: 20})

	assert.NoError(t, err)
	assert.Nil(t, page)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestStore_FetchPage_InvalidRequest(t *testing.T) {
	fetcher := &MockFetcher{}
	store := newTestStore(t, fetcher, NopNotifier{}, nil)

	for _, req := range []pagination.Request{{Limit: 0}, {Limit: 20, Skip: -1}} {
		page, err := store.FetchPage(context.Background(), store.Query(""), req)
		assert.ErrorIs(t, err, pagination.ErrInvalidArgument)
		assert.Nil(t, page)
	}
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_LoadMore_RequestsNextOffset(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, "https://catalog.test/products", client.Params{
		"limit":  20,
		"skip":   20,
		"select": "title,price,images",
	}).Return(ok(`{"products": [], "total": 21, "skip": 20, "limit": 20}`))

	store := newTestStore(t, fetcher, NopNotifier{}, nil)
	result, err := store.LoadMore(context.Background(), 1, 20, "")

	require.NoError(t, err)
	fetcher.AssertExpectations(t)
	assert.Equal(t, 2, result.CurrentPage)
	assert.True(t, result.HasMore, "21 > 20")
	assert.Nil(t, result.Items, "empty product list is reported as absent")
}

func TestStore_LoadMore_SearchScenario(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, "https://catalog.test/products/search", client.Params{
		"limit":  20,
		"skip":   20,
		"select": "title,price,images",
		"q":      "iphone",
	}).Return(ok(twoIPhones))

	store := newTestStore(t, fetcher, NopNotifier{}, nil)
	result, err := store.LoadMore(context.Background(), 1, 20, "iphone")

	require.NoError(t, err)
	assert.Equal(t, 2, result.CurrentPage)
	assert.Len(t, result.Items, 2)
	assert.False(t, result.HasMore, "2 > 20 is false")
}

func TestStore_LoadMore_HasMoreFromTotal(t *testing.T) {
	body := `{"products": [` + productsJSON(20) + `], "total": 100, "skip": 0, "limit": 20}`
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(ok(body))

	store := newTestStore(t, fetcher, NopNotifier{}, nil)
	result, err := store.LoadMore(context.Background(), 1, 20, "")

	require.NoError(t, err)
	assert.True(t, result.HasMore, "100 > 20")
	assert.Len(t, result.Items, 20)
}

func TestStore_LoadMore_TransportFailure(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(transportFailure(client.ErrorClassServer, 503))
	notifier := &MockNotifier{}
	notifier.On("Notify", FailureMessage, SeverityDestructive, RetryActionLabel).Return()

	store := newTestStore(t, fetcher, notifier, nil)
	result, err := store.LoadMore(context.Background(), 3, 10, "phone")

	require.NoError(t, err)
	assert.Equal(t, LoadMoreResult{CurrentPage: 4, Items: nil, HasMore: false}, result)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestStore_LoadMore_InvalidArguments(t *testing.T) {
	tests := []struct {
		name        string
		currentPage int
		limit       int
	}{
		{name: "zero limit", currentPage: 1, limit: 0},
		{name: "negative limit", currentPage: 1, limit: -5},
		{name: "next page below one", currentPage: -1, limit: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &MockFetcher{}
			notifier := &MockNotifier{}
			store := newTestStore(t, fetcher, notifier, nil)

			_, err := store.LoadMore(context.Background(), tt.currentPage, tt.limit, "")

			assert.ErrorIs(t, err, pagination.ErrInvalidArgument)
			fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
			notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestStore_StateHook(t *testing.T) {
	tests := []struct {
		name   string
		result client.Result
		want   []State
	}{
		{name: "success", result: ok(twoIPhones), want: []State{StateLoading, StateSuccess}},
		{name: "failure", result: transportFailure(client.ErrorClassNetwork, 0), want: []State{StateLoading, StateFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &MockFetcher{}
			fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(tt.result)

			var states []State
			store := newTestStore(t, fetcher, NopNotifier{}, func(s State) { states = append(states, s) })

			_, err := store.LoadMore(context.Background(), 0, 20, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, states)
		})
	}
}

func TestStore_ConcurrentCallsEachNotify(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(transportFailure(client.ErrorClassServer, 500))

	var mu sync.Mutex
	notified := 0
	notifier := NotifierFunc(func(string, Severity, string) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	store := newTestStore(t, fetcher, notifier, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.LoadMore(context.Background(), 1, 20, "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, notified)
}

func TestStore_PageSource(t *testing.T) {
	fetcher := &MockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(transportFailure(client.ErrorClassServer, 500)).Once()
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(ok(twoIPhones))
	notifier := &MockNotifier{}

	source := newTestStore(t, fetcher, notifier, nil).PageSource()

	_, _, err := source.FetchPage(context.Background(), pagination.Request{Limit: 20})
	assert.True(t, errors.Is(err, client.ErrTransport))

	items, total, err := source.FetchPage(context.Background(), pagination.Request{Limit: 20, Skip: 20, Search: "iphone"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_AgainstMockCatalog(t *testing.T) {
	server := testutil.NewMockCatalog()
	defer server.Close()

	httpClient, err := client.New(client.DefaultConfig("CatalogTest/1.0.0"))
	require.NoError(t, err)
	defer httpClient.Close()

	notifier := &MockNotifier{}
	store, err := NewStore(Config{BaseURI: server.URL(), Fetcher: httpClient, Notifier: notifier})
	require.NoError(t, err)

	result, err := store.LoadMore(context.Background(), 1, 20, "iphone")
	require.NoError(t, err)
	assert.Equal(t, 2, result.CurrentPage)
	assert.Nil(t, result.Items, "only two iPhones exist, page 2 is empty")
	assert.False(t, result.HasMore)
	assert.Equal(t, "/products/search", server.LastPath())
	assert.Equal(t, "iphone", server.LastQuery().Get("q"))

	page, err := store.FetchPage(context.Background(), store.Query(""), pagination.Request{Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 30, page.Total)
	assert.Len(t, page.Products, 5)
	assert.Equal(t, "/products", server.LastPath())
	_, hasQ := server.LastQuery()["q"]
	assert.False(t, hasQ)

	server.SetResponse("/products", testutil.NewServerErrorResponse())
	notifier.On("Notify", FailureMessage, SeverityDestructive, RetryActionLabel).Return().Once()

	page, err = store.FetchPage(context.Background(), store.Query(""), pagination.Request{Limit: 5})
	assert.NoError(t, err)
	assert.Nil(t, page)
	notifier.AssertExpectations(t)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func productsJSON(n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ","
		}
		out += `{"id":` + decimal.NewFromInt(int64(i)).String() + `,"title":"Product","price":1.5,"images":[]}`
	}
	return out
}
