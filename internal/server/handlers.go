// Package server provides the HTTP surface of the storefront catalog.
package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"roastery/internal/core"
	"roastery/internal/seo"
	"roastery/internal/storefront"
)

// Catalog is the storefront surface the handlers serve.
type Catalog interface {
	Snapshot() storefront.State
	Fingerprint() string
	Product(idOrSlug string) (core.Product, bool)
	Language() core.Language
	ToggleLanguage(ctx context.Context) (core.Language, error)
	SetLanguage(ctx context.Context, lang core.Language) error
	ClearCache(ctx context.Context) (int, error)
	CacheAges(ctx context.Context) map[string]int
}

// WarmedImages reports which image URLs have been preloaded.
type WarmedImages interface {
	All(ctx context.Context) []string
	Missing(ctx context.Context, urls []string) []string
}

// Handler holds the HTTP handlers
type Handler struct {
	catalog  Catalog
	warmed   WarmedImages
	siteBase string
	currency string
}

// NewHandler creates a new handler over catalog.
func NewHandler(catalog Catalog, warmed WarmedImages, siteBase, currency string) *Handler {
	if currency == "" {
		currency = "USD"
	}
	return &Handler{
		catalog:  catalog,
		warmed:   warmed,
		siteBase: siteBase,
		currency: currency,
	}
}

type stateResponse struct {
	Language         core.Language  `json:"language"`
	Direction        core.Direction `json:"direction"`
	Loading          bool           `json:"loading"`
	Error            string         `json:"error,omitempty"`
	Products         int            `json:"products"`
	Categories       int            `json:"categories"`
	AllCategories    int            `json:"allCategories"`
	BaselineProducts int            `json:"baselineProducts"`
	UpdatedAt        *time.Time     `json:"updatedAt,omitempty"`
}

type listResponse[T any] struct {
	Language  core.Language  `json:"language"`
	Direction core.Direction `json:"direction"`
	Loading   bool           `json:"loading"`
	Error     string         `json:"error,omitempty"`
	Items     []T            `json:"items"`
}

type languageRequest struct {
	Language string `json:"language"`
}

type languageResponse struct {
	Language  core.Language  `json:"language"`
	Direction core.Direction `json:"direction"`
	Error     string         `json:"error,omitempty"`
}

// Health handles GET /health
//
// @Summary  Liveness check
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// State handles GET /v1/state
//
// @Summary  Storefront state
// @Description  Language, direction, loading and error flags and catalog counts.
// @Tags     catalog
// @Produce  json
// @Success  200  {object}  server.stateResponse
// @Router   /v1/state [get]
func (h *Handler) State(c echo.Context) error {
	s := h.catalog.Snapshot()
	resp := stateResponse{
		Language:         s.Language,
		Direction:        s.Direction,
		Loading:          s.Loading,
		Error:            s.Error,
		Products:         len(s.Products),
		Categories:       len(s.Categories),
		AllCategories:    len(s.AllCategories),
		BaselineProducts: s.BaselineProducts,
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = &s.UpdatedAt
	}
	return c.JSON(http.StatusOK, resp)
}

// ListProducts handles GET /v1/products. ?category= filters by category id or slug.
//
// @Summary  List products
// @Tags     catalog
// @Produce  json
// @Param    category       query   string  false  "Category id or slug"
// @Param    If-None-Match  header  string  false  "ETag of a previous response"
// @Success  200  {object}  server.listResponse[core.Product]
// @Success  304  {string}  string  "Not Modified"
// @Router   /v1/products [get]
func (h *Handler) ListProducts(c echo.Context) error {
	s := h.catalog.Snapshot()
	if notModified(c, s.Fingerprint) {
		return c.NoContent(http.StatusNotModified)
	}

	items := s.Products
	if cat := c.QueryParam("category"); cat != "" {
		items = make([]core.Product, 0, len(s.Products))
		for _, p := range s.Products {
			if p.CategoryID == cat || p.CategorySlug == cat {
				items = append(items, p)
			}
		}
	}
	return c.JSON(http.StatusOK, list(s, items))
}

// GetProduct handles GET /v1/products/:id, matching id or slug.
//
// @Summary  Get a product
// @Tags     catalog
// @Produce  json
// @Param    id   path      string  true  "Product id or slug"
// @Success  200  {object}  core.Product
// @Success  304  {string}  string  "Not Modified"
// @Failure  404  {object}  map[string]any
// @Router   /v1/products/{id} [get]
func (h *Handler) GetProduct(c echo.Context) error {
	id := c.Param("id")
	p, ok := h.catalog.Product(id)
	if !ok {
		return handleError(c, core.NewNotFoundError("product not found: "+id))
	}
	if notModified(c, h.catalog.Fingerprint()) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, p)
}

// HomepageCategories handles GET /v1/categories
//
// @Summary  Homepage categories
// @Tags     catalog
// @Produce  json
// @Success  200  {object}  server.listResponse[core.Category]
// @Success  304  {string}  string  "Not Modified"
// @Router   /v1/categories [get]
func (h *Handler) HomepageCategories(c echo.Context) error {
	s := h.catalog.Snapshot()
	if notModified(c, s.Fingerprint) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, list(s, s.Categories))
}

// AllCategories handles GET /v1/categories/all
//
// @Summary  All categories
// @Tags     catalog
// @Produce  json
// @Success  200  {object}  server.listResponse[core.Category]
// @Success  304  {string}  string  "Not Modified"
// @Router   /v1/categories/all [get]
func (h *Handler) AllCategories(c echo.Context) error {
	s := h.catalog.Snapshot()
	if notModified(c, s.Fingerprint) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, list(s, s.AllCategories))
}

// ToggleLanguage handles POST /v1/language/toggle
//
// @Summary  Toggle between English and Arabic
// @Tags     language
// @Produce  json
// @Success  200  {object}  server.languageResponse
// @Router   /v1/language/toggle [post]
func (h *Handler) ToggleLanguage(c echo.Context) error {
	lang, err := h.catalog.ToggleLanguage(c.Request().Context())
	return h.languageChanged(c, lang, err)
}

// SetLanguage handles PUT /v1/language
//
// @Summary  Set the storefront language
// @Tags     language
// @Accept   json
// @Produce  json
// @Param    request  body      server.languageRequest  true  "Language, en or ar"
// @Success  200      {object}  server.languageResponse
// @Failure  400      {object}  map[string]any
// @Router   /v1/language [put]
func (h *Handler) SetLanguage(c echo.Context) error {
	var req languageRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	lang, err := core.ParseLanguage(req.Language)
	if err != nil {
		return handleError(c, core.NewInvalidRequestError(err.Error(), err))
	}
	err = h.catalog.SetLanguage(c.Request().Context(), lang)
	return h.languageChanged(c, lang, err)
}

// languageChanged reports the new language. A load failure after the switch
// is reported in the body; the switch itself has applied.
func (h *Handler) languageChanged(c echo.Context, lang core.Language, err error) error {
	var catErr *core.CatalogError
	if errors.As(err, &catErr) && catErr.Type == core.ErrorTypeInvalidRequest {
		return handleError(c, err)
	}

	setPresentationHeaders(c, core.PresentationFor(lang))
	resp := languageResponse{Language: lang, Direction: lang.Direction()}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// Sitemap handles GET /sitemap.xml
//
// @Summary  Sitemap
// @Tags     seo
// @Produce  xml
// @Success  200  {string}  string  "urlset document"
// @Router   /sitemap.xml [get]
func (h *Handler) Sitemap(c echo.Context) error {
	s := h.catalog.Snapshot()
	if notModified(c, s.Fingerprint) {
		return c.NoContent(http.StatusNotModified)
	}
	body, err := seo.Sitemap(h.base(c), s.Products, s.AllCategories, s.UpdatedAt)
	if err != nil {
		return handleError(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, body)
}

// ProductFeed handles GET /feeds/products.csv
//
// @Summary  Product feed
// @Tags     seo
// @Produce  text/csv
// @Success  200  {string}  string  "CSV feed"
// @Router   /feeds/products.csv [get]
func (h *Handler) ProductFeed(c echo.Context) error {
	s := h.catalog.Snapshot()
	if notModified(c, s.Fingerprint) {
		return c.NoContent(http.StatusNotModified)
	}
	var buf bytes.Buffer
	if err := seo.ProductFeed(&buf, h.base(c), h.currency, s.Products); err != nil {
		return handleError(c, err)
	}
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// CacheStatus handles GET /admin/cache
//
// @Summary  Cache entry ages in minutes
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Success  200  {object}  map[string]any
// @Failure  401  {object}  map[string]any
// @Router   /admin/cache [get]
func (h *Handler) CacheStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"language": h.catalog.Language(),
		"ages":     h.catalog.CacheAges(c.Request().Context()),
	})
}

// ClearCache handles POST /admin/cache/clear
//
// @Summary  Clear the catalog cache and reload
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Success  200  {object}  map[string]any
// @Failure  401  {object}  map[string]any
// @Router   /admin/cache/clear [post]
func (h *Handler) ClearCache(c echo.Context) error {
	removed, err := h.catalog.ClearCache(c.Request().Context())
	resp := map[string]any{"removed": removed}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// WarmedImages handles GET /admin/images. It lists the warmed URLs and the
// current snapshot's image URLs that have not been warmed yet.
//
// @Summary  Warmed image URLs
// @Tags     admin
// @Produce  json
// @Security BearerAuth
// @Success  200  {object}  map[string]any
// @Failure  401  {object}  map[string]any
// @Router   /admin/images [get]
func (h *Handler) WarmedImages(c echo.Context) error {
	ctx := c.Request().Context()
	if h.warmed == nil {
		return c.JSON(http.StatusOK, map[string]any{"count": 0, "urls": []string{}, "missing": []string{}})
	}

	s := h.catalog.Snapshot()
	var want []string
	for _, p := range s.Products {
		want = append(want, p.Images...)
	}
	for _, cat := range s.AllCategories {
		if cat.Image != "" {
			want = append(want, cat.Image)
		}
	}

	urls := h.warmed.All(ctx)
	missing := h.warmed.Missing(ctx, want)
	if missing == nil {
		missing = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"count":   len(urls),
		"urls":    urls,
		"missing": missing,
	})
}

func (h *Handler) base(c echo.Context) string {
	if h.siteBase != "" {
		return h.siteBase
	}
	return c.Scheme() + "://" + c.Request().Host
}

func list[T any](s storefront.State, items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{
		Language:  s.Language,
		Direction: s.Direction,
		Loading:   s.Loading,
		Error:     s.Error,
		Items:     items,
	}
}

// notModified sets the ETag for fingerprint and reports whether the client
// already holds it.
func notModified(c echo.Context, fingerprint string) bool {
	if fingerprint == "" {
		return false
	}
	etag := `"` + fingerprint + `"`
	c.Response().Header().Set("ETag", etag)
	for _, candidate := range strings.Split(c.Request().Header.Get("If-None-Match"), ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

// handleError converts catalog errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var catErr *core.CatalogError
	if errors.As(err, &catErr) {
		return c.JSON(catErr.HTTPStatusCode(), catErr.ToJSON())
	}

	slog.Error("unhandled error", "path", c.Path(), "error", err)
	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
