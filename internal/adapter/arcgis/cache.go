package arcgis

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/observability"
)

// LayerSource fetches one boundary layer.
type LayerSource interface {
	FetchLayer(ctx context.Context, def domain.LayerDef) (domain.EsriFeatureSet, error)
}

// CachedSource wraps a LayerSource with an in-memory LRU cache keyed by the
// layer's service and ID.
type CachedSource struct {
	inner   LayerSource
	cache   *lru.Cache[string, domain.EsriFeatureSet]
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a layer source.
func NewCachedSource(inner LayerSource, maxEntries int, metrics *observability.Metrics) (*CachedSource, error) {
	cache, err := lru.New[string, domain.EsriFeatureSet](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create layer cache: %w", err)
	}
	return &CachedSource{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedSource) FetchLayer(ctx context.Context, def domain.LayerDef) (domain.EsriFeatureSet, error) {
	key := fmt.Sprintf("%s/%d", def.Service, def.LayerID)
	if set, ok := c.cache.Get(key); ok {
		c.metrics.BoundaryCache.WithLabelValues("hit").Inc()
		return set, nil
	}
	c.metrics.BoundaryCache.WithLabelValues("miss").Inc()

	set, err := c.inner.FetchLayer(ctx, def)
	if err != nil {
		return set, err
	}
	// Empty layers are not cached; the next load asks the source again.
	if len(set.Features) > 0 {
		c.cache.Add(key, set)
	}
	return set, nil
}

// Purge drops every cached layer.
func (c *CachedSource) Purge() {
	c.cache.Purge()
}
