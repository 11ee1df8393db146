package catalog

import (
	"context"
	"encoding/json"

	"github.com/coocood/freecache"
	"github.com/golang/glog"
)

// NewCachedFetcher wraps a Fetcher with an in-process freecache layer so hot
// products skip the backing store. sizeBytes is the total cache size and
// ttlSeconds how long an entry stays fresh; lookups that miss or fail to
// decode fall through to the delegate.
//
// Not-found results are not cached, so a product added to the backing store
// becomes visible on the next fetch.
func NewCachedFetcher(delegate Fetcher, sizeBytes int, ttlSeconds int) Fetcher {
	return &cachedFetcher{
		delegate: delegate,
		cache:    freecache.NewCache(sizeBytes),
		ttl:      ttlSeconds,
	}
}

type cachedFetcher struct {
	delegate Fetcher
	cache    *freecache.Cache
	ttl      int
}

func (f *cachedFetcher) FetchProduct(ctx context.Context, productID string) (*ProductDefinition, error) {
	key := []byte(productID)
	if data, err := f.cache.Get(key); err == nil {
		var product ProductDefinition
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
		glog.Errorf("Corrupt cache entry for product %s. Re-fetching.", productID)
	}

	product, err := f.delegate.FetchProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := f.cache.Set(key, data, f.ttl); err != nil {
			glog.Warningf("Failed to cache product %s: %v", productID, err)
		}
	}
	return product, nil
}
