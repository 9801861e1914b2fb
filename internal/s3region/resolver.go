package s3region

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// DefaultRegion is the bootstrap region used for the initial lookup and
// the region every self-hosted bucket resolves to.
const DefaultRegion = "us-east-1"

// Fetcher issues the actual "GET /{bucket}?location" round trip and parses
// the response into a region code. It is supplied by the caller
// (pkg/crate) so this package stays free of any HTTP or signing
// dependency.
type Fetcher func(ctx context.Context, bucket string) (string, error)

// Resolver implements the regionOf(bucket) contract.
type Resolver struct {
	cache     *Cache
	pathStyle bool
	fetch     Fetcher
	group     singleflight.Group
}

// NewResolver builds a Resolver. pathStyle bypasses the network entirely:
// self-hosted endpoints always resolve to DefaultRegion.
func NewResolver(cache *Cache, pathStyle bool, fetch Fetcher) *Resolver {
	return &Resolver{cache: cache, pathStyle: pathStyle, fetch: fetch}
}

// RegionOf returns bucket's region, consulting the cache first, then
// coalescing concurrent bootstrap lookups for the same bucket via
// singleflight, then falling through to Fetcher on a true cache miss.
// Fetcher errors propagate without poisoning the cache.
func (r *Resolver) RegionOf(ctx context.Context, bucket string) (string, error) {
	if r.pathStyle {
		return DefaultRegion, nil
	}

	if region, ok := r.cache.Get(bucket); ok {
		return region, nil
	}

	v, err, _ := r.group.Do(bucket, func() (any, error) {
		if region, ok := r.cache.Get(bucket); ok {
			return region, nil
		}

		region, err := r.fetch(ctx, bucket)
		if err != nil {
			return "", err
		}

		r.cache.Set(bucket, region)
		return region, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}
