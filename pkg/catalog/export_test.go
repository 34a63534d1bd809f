package catalog

import (
	"context"
	"testing"

	"github.com/Sternrassler/product-catalog-client/internal/testutil"
	"github.com/Sternrassler/product-catalog-client/pkg/client"
	"github.com/Sternrassler/product-catalog-client/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStore_ExportAll(t *testing.T) {
	server := testutil.NewMockCatalog()
	defer server.Close()

	notifier := &MockNotifier{}
	store := newCatalogStore(t, server, notifier)

	products, err := store.ExportAll(context.Background(), "", pagination.Config{MaxConcurrency: 3, PageSize: 7})
	require.NoError(t, err)
	require.Len(t, products, 30)
	for i, p := range products {
		assert.Equal(t, i+1, p.ID)
	}
	assert.Equal(t, 5, server.RequestCount(), "ceil(30/7) pages")

	matches, err := store.ExportAll(context.Background(), "iphone", pagination.Config{PageSize: 1})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestStore_ExportAll_Failure(t *testing.T) {
	server := testutil.NewMockCatalog()
	defer server.Close()
	server.SetResponse("/products", testutil.NewServerErrorResponse())

	notifier := &MockNotifier{}
	store := newCatalogStore(t, server, notifier)

	products, err := store.ExportAll(context.Background(), "", pagination.DefaultConfig())
	assert.ErrorIs(t, err, client.ErrTransport)
	assert.Empty(t, products)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}
