package services

import (
	"context"
	"sort"
	"time"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/pkg/cache"
	"github.com/huertohogar/huerto/pkg/logger"
)

// AllCategories is the pseudo-category that disables filtering.
const AllCategories = "Todas"

const productsCacheKey = "products:all"

// ProductSource lists the remote catalogue.
type ProductSource interface {
	Products(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, id string) (models.Product, error)
}

// ProductMirror is the local copy served while the remote is unreachable.
type ProductMirror interface {
	Upsert(ctx context.Context, products []models.Product) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context, category string) ([]models.Product, error)
}

// Catalog is a product listing. Offline is set when it came from the local
// mirror, in which case prices and stock may be out of date.
type Catalog struct {
	Products []models.Product `json:"products"`
	Offline  bool             `json:"offline"`
}

// CatalogService serves the product listing with a Redis cache in front of
// the remote service and the local mirror behind it.
type CatalogService struct {
	remote ProductSource
	mirror ProductMirror
	cache  *cache.Cache
	ttl    time.Duration
}

func NewCatalogService(remote ProductSource, mirror ProductMirror, c *cache.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{remote: remote, mirror: mirror, cache: c, ttl: ttl}
}

// Products lists products in category, or every product for "" and
// AllCategories.
func (s *CatalogService) Products(ctx context.Context, category string) (Catalog, error) {
	if category == AllCategories {
		category = ""
	}

	all, err := s.fetchAll(ctx)
	if err == nil {
		return Catalog{Products: filterCategory(all, category)}, nil
	}

	log := logger.WithCtx(ctx)
	log.Warn("catalog: product service unavailable, serving mirror", "error", err)

	mirrored, merr := s.mirror.All(ctx, category)
	if merr != nil || len(mirrored) == 0 {
		if merr != nil {
			log.Error("catalog: mirror read failed", "error", merr)
		}
		return Catalog{}, err
	}
	return Catalog{Products: mirrored, Offline: true}, nil
}

// Categories returns AllCategories followed by every distinct category in
// alphabetical order.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	listing, err := s.Products(ctx, "")
	if err != nil {
		return nil, err
	}
	return Categories(listing.Products), nil
}

// Product fetches one product straight from the remote service so callers
// see current stock.
func (s *CatalogService) Product(ctx context.Context, id string) (models.Product, error) {
	return s.remote.Product(ctx, id)
}

// Invalidate drops the cached listing.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, productsCacheKey); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidation failed", "error", err)
	}
}

// Sync reloads the listing from the remote service into the cache and the
// mirror, and returns the number of products seen.
func (s *CatalogService) Sync(ctx context.Context) (int, error) {
	s.Invalidate(ctx)
	products, err := s.fetchAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(products), nil
}

func (s *CatalogService) fetchAll(ctx context.Context) ([]models.Product, error) {
	var cached []models.Product
	if s.cache.Get(ctx, productsCacheKey, &cached) {
		return cached, nil
	}

	products, err := s.remote.Products(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, productsCacheKey, products, s.ttl); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache write failed", "error", err)
	}
	if err := s.mirror.Upsert(ctx, products); err != nil {
		logger.WithCtx(ctx).Warn("catalog: mirror refresh failed", "error", err)
	}
	return products, nil
}

// Categories derives the category filter list from products.
func Categories(products []models.Product) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		names = append(names, p.Category)
	}
	sort.Strings(names)
	return append([]string{AllCategories}, names...)
}

func filterCategory(products []models.Product, category string) []models.Product {
	if category == "" {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
