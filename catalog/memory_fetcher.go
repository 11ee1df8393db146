package catalog

import (
	"context"
)

// NewMemoryFetcher returns a Fetcher backed by a fixed product map. The map
// is not copied; callers must not mutate it after construction.
func NewMemoryFetcher(products map[string]*ProductDefinition) Fetcher {
	return &memoryFetcher{products: products}
}

type memoryFetcher struct {
	products map[string]*ProductDefinition
}

func (f *memoryFetcher) FetchProduct(ctx context.Context, productID string) (*ProductDefinition, error) {
	if product, ok := f.products[productID]; ok {
		return product, nil
	}
	return nil, &NotFoundError{ID: productID}
}
