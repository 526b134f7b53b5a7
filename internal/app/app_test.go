package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastery/config"
	"roastery/internal/core"
)

// catalogAPI serves a two-product, two-category catalog.
func catalogAPI(t *testing.T, listCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/products":
			if listCalls != nil {
				listCalls.Add(1)
			}
			_, _ = w.Write([]byte(`{"items":[{"id":1,"price":20},{"id":2,"price":9}],"totalCount":2}`))
		case r.URL.Path == "/products/1":
			_, _ = w.Write([]byte(`{
				"id": 1, "slug": "guji", "name": "Guji", "nameAr": "غوجي",
				"variants": [{"price": 20, "discountPrice": 17, "isDefault": true}],
				"images": [{"imagePath": "/uploads/guji.jpg", "isMain": true}]
			}`))
		case strings.HasPrefix(r.URL.Path, "/products/"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Product not found"}`))
		case r.URL.Path == "/categories":
			_, _ = w.Write([]byte(`[
				{"id":1,"slug":"espresso","name":"Espresso","nameAr":"إسبريسو","isDisplayedOnHomepage":true,"displayOrder":0},
				{"id":2,"slug":"filter","name":"Filter","isDisplayedOnHomepage":false,"displayOrder":1}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(apiURL string) *config.Config {
	cfg := config.Defaults()
	cfg.Storage.Type = "memory"
	cfg.Catalog.DefaultAPIBase = apiURL
	cfg.Catalog.MaxRetries = 0
	cfg.Images.Preload = false
	cfg.Images.SiteBaseURL = "https://shop.example.com"
	cfg.Server.MasterKey = "admin-key"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return a
}

func get(t *testing.T, h http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
}

func TestNew_StorageFailure(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Storage.Type = "cassandra"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize storage")
}

func TestApp_ServesNormalizedCatalog(t *testing.T) {
	api := catalogAPI(t, nil)
	a := newTestApp(t, testConfig(api.URL))
	a.Storefront().Start(context.Background())
	h := a.Handler()

	rec := get(t, h, http.MethodGet, "/v1/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))

	var products struct {
		Items []core.Product `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products.Items, 2)

	assert.Equal(t, "Guji", products.Items[0].Name)
	assert.Equal(t, 17.0, products.Items[0].Price)
	assert.Equal(t, api.URL+"/uploads/guji.jpg", products.Items[0].Image)
	assert.True(t, products.Items[0].Enriched)

	// Detail 404 keeps the list record with the fallback image.
	assert.Equal(t, "2", products.Items[1].ID)
	assert.Equal(t, 9.0, products.Items[1].Price)
	assert.Equal(t, "https://shop.example.com/images/default-product.webp", products.Items[1].Image)
	assert.False(t, products.Items[1].Enriched)

	rec = get(t, h, http.MethodGet, "/v1/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cats struct {
		Items []core.Category `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	require.Len(t, cats.Items, 1)
	assert.Equal(t, "espresso", cats.Items[0].Slug)
}

func TestApp_LanguageToggleAndCache(t *testing.T) {
	var listCalls atomic.Int32
	api := catalogAPI(t, &listCalls)
	a := newTestApp(t, testConfig(api.URL))
	a.Storefront().Start(context.Background())
	h := a.Handler()
	require.Equal(t, int32(1), listCalls.Load())

	rec := get(t, h, http.MethodPost, "/v1/language/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rtl", rec.Header().Get("X-Text-Direction"))
	require.Equal(t, int32(2), listCalls.Load(), "arabic keys start empty")

	p, ok := a.Storefront().Product("guji")
	require.True(t, ok)
	assert.Equal(t, "غوجي", p.Name)

	rec = get(t, h, http.MethodPost, "/v1/language/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), listCalls.Load(), "english entries were kept and served from cache")

	rec = get(t, h, http.MethodGet, "/admin/cache", map[string]string{"Authorization": "Bearer admin-key"})
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Ages map[string]int `json:"ages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Contains(t, status.Ages, "roastery_products_en")
	assert.Contains(t, status.Ages, "roastery_products_ar")
}

func TestApp_ETag(t *testing.T) {
	api := catalogAPI(t, nil)
	a := newTestApp(t, testConfig(api.URL))
	a.Storefront().Start(context.Background())
	h := a.Handler()

	rec := get(t, h, http.MethodGet, "/v1/categories/all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = get(t, h, http.MethodGet, "/v1/categories/all", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestApp_ShutdownIdempotent(t *testing.T) {
	api := catalogAPI(t, nil)
	a, err := New(context.Background(), testConfig(api.URL))
	require.NoError(t, err)

	a.startLoading()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
	require.NoError(t, a.Shutdown(ctx))
}
