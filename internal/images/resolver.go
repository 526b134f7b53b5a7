// Package images resolves catalog image paths into absolute URLs and warms
// image URLs in the background.
package images

import (
	"log/slog"
	"strings"
)

// Region names the API origin a deployment is currently pointed at.
type Region string

const (
	RegionPrimary   Region = "primary"
	RegionSecondary Region = "secondary"
)

// RegionSource reports the active region. It is tracked outside this
// package (configuration, an admin switch); errors fall back to the default origin.
type RegionSource interface {
	ActiveRegion() (Region, error)
}

// StaticRegion is a RegionSource that never changes.
type StaticRegion Region

func (r StaticRegion) ActiveRegion() (Region, error) {
	return Region(r), nil
}

// Default fallback assets shipped with the storefront, relative to the site base.
const (
	DefaultProductFallback  = "/images/default-product.webp"
	DefaultCategoryFallback = "/images/default-category.webp"
)

// ResolverConfig holds the origins and fallbacks used to resolve image URLs.
type ResolverConfig struct {
	// DefaultAPIBase is used when the region is unset, unknown or unreadable.
	DefaultAPIBase string
	// PrimaryAPIBase and SecondaryAPIBase are the region-specific API origins.
	PrimaryAPIBase   string
	SecondaryAPIBase string
	// SiteBase is the storefront's own base URL; fallback assets resolve against it.
	SiteBase string

	ProductFallback  string
	CategoryFallback string
}

// Resolver maps whatever path-like value the API provides to an absolute URL.
type Resolver struct {
	cfg    ResolverConfig
	region RegionSource
}

// NewResolver creates a resolver. A nil region source always uses the default origin.
func NewResolver(cfg ResolverConfig, region RegionSource) *Resolver {
	if cfg.ProductFallback == "" {
		cfg.ProductFallback = DefaultProductFallback
	}
	if cfg.CategoryFallback == "" {
		cfg.CategoryFallback = DefaultCategoryFallback
	}
	return &Resolver{cfg: cfg, region: region}
}

// APIBase returns the API origin for the active region, without a trailing slash.
func (r *Resolver) APIBase() string {
	base := r.cfg.DefaultAPIBase
	if r.region != nil {
		region, err := r.region.ActiveRegion()
		switch {
		case err != nil:
			slog.Debug("active region unavailable, using default API origin", "error", err)
		case region == RegionPrimary && r.cfg.PrimaryAPIBase != "":
			base = r.cfg.PrimaryAPIBase
		case region == RegionSecondary && r.cfg.SecondaryAPIBase != "":
			base = r.cfg.SecondaryAPIBase
		}
	}
	return strings.TrimRight(base, "/")
}

// URL resolves path. An empty path resolves fallback as a local storefront
// asset, absolute URLs pass through unchanged, and anything else is joined
// onto the API origin.
func (r *Resolver) URL(path, fallback string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return r.siteURL(fallback)
	}
	if isAbsolute(path) {
		return path
	}
	return r.APIBase() + "/" + strings.TrimLeft(path, "/")
}

// ProductURL resolves a product image path with the product fallback.
func (r *Resolver) ProductURL(path string) string {
	return r.URL(path, r.cfg.ProductFallback)
}

// CategoryURL resolves a category image path with the category fallback.
func (r *Resolver) CategoryURL(path string) string {
	return r.URL(path, r.cfg.CategoryFallback)
}

// ProductFallbackURL is the resolved default product image.
func (r *Resolver) ProductFallbackURL() string {
	return r.siteURL(r.cfg.ProductFallback)
}

func (r *Resolver) siteURL(asset string) string {
	asset = strings.TrimSpace(asset)
	if isAbsolute(asset) {
		return asset
	}
	return strings.TrimRight(r.cfg.SiteBase, "/") + "/" + strings.TrimLeft(asset, "/")
}

func isAbsolute(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
