package catalog

import (
	"context"
	"time"

	"roastery/internal/core"
	"roastery/internal/observability"
)

// Service loads normalized catalog data: a list fetch followed by
// normalization. List failures are returned; detail failures are not.
type Service struct {
	client     *Client
	normalizer *Normalizer
}

// NewService creates a catalog service over client. The normalizer's detail
// fetches go through the same client.
func NewService(client *Client, normalizer *Normalizer) *Service {
	return &Service{client: client, normalizer: normalizer}
}

// Products loads and normalizes every product in lang.
func (s *Service) Products(ctx context.Context, lang core.Language) ([]Outcome, error) {
	start := time.Now()
	list, err := s.client.ListProducts(ctx)
	if err != nil {
		observability.CatalogFetches.WithLabelValues("products", "error").Inc()
		return nil, err
	}
	outcomes := s.normalizer.Products(ctx, lang, list)
	observability.CatalogFetchDuration.WithLabelValues("products").Observe(time.Since(start).Seconds())
	observability.CatalogFetches.WithLabelValues("products", "ok").Inc()
	return outcomes, nil
}

// Categories loads and normalizes every category in lang.
func (s *Service) Categories(ctx context.Context, lang core.Language) (CategorySet, error) {
	start := time.Now()
	raws, err := s.client.ListCategories(ctx)
	if err != nil {
		observability.CatalogFetches.WithLabelValues("categories", "error").Inc()
		return CategorySet{}, err
	}
	set := s.normalizer.Categories(lang, raws)
	observability.CatalogFetchDuration.WithLabelValues("categories").Observe(time.Since(start).Seconds())
	observability.CatalogFetches.WithLabelValues("categories", "ok").Inc()
	return set, nil
}
