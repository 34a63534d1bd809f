package catalog

import (
	"context"
	"testing"

	"github.com/Sternrassler/product-catalog-client/pkg/client"
	"github.com/stretchr/testify/mock"
)

type MockFetcher struct {
	mock.Mock
}

var _ Fetcher = (*MockFetcher)(nil)

func (m *MockFetcher) Fetch(ctx context.Context, url string, params client.Params) client.Result {
	args := m.Called(ctx, url, params)
	return args.Get(0).(client.Result)
}

type MockNotifier struct {
	mock.Mock
}

var _ Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(message string, severity Severity, actionLabel string) {
	m.Called(message, severity, actionLabel)
}

func ok(body string) client.Result {
	return client.Result{Data: []byte(body), StatusCode: 200}
}

func transportFailure(class client.ErrorClass, status int) client.Result {
	return client.Result{
		StatusCode: status,
		Err:        &client.TransportError{StatusCode: status, ErrorClass: class, Message: "test failure"},
	}
}

func newTestStore(t testing.TB, fetcher Fetcher, notifier Notifier, hook StateHook) *Store {
	store, err := NewStore(Config{
		BaseURI:   "https://catalog.test",
		Fetcher:   fetcher,
		Notifier:  notifier,
		StateHook: hook,
	})
	t.Helper()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}
