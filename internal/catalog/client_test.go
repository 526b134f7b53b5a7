package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"roastery/internal/core"
)

func testClient(t *testing.T, handler http.HandlerFunc, cfg ClientConfig) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Millisecond
		cfg.MaxBackoff = 5 * time.Millisecond
	}
	return NewClient(server.Client(), StaticBaseURL(server.URL+"/"), cfg)
}

func TestListProducts_Pagination(t *testing.T) {
	var pages []string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("path = %s, want /products", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Error("expected Accept: application/json header")
		}
		if r.URL.Query().Get("includeInactive") != "false" {
			t.Errorf("includeInactive = %q", r.URL.Query().Get("includeInactive"))
		}
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		switch page {
		case "1":
			_, _ = w.Write([]byte(`{"items":[{"id":1},{"id":2}],"totalCount":3}`))
		case "2":
			_, _ = w.Write([]byte(`{"items":[{"id":3}],"totalCount":3}`))
		default:
			t.Errorf("unexpected page %s", page)
		}
	}, ClientConfig{PageSize: 2})

	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("len(products) = %d, want 3", len(products))
	}
	if products[2].ID() != "3" {
		t.Errorf("third id = %q, want 3", products[2].ID())
	}
	if strings.Join(pages, ",") != "1,2" {
		t.Errorf("pages requested = %v, want [1 2]", pages)
	}
}

func TestListProducts_Envelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2},
		{"data array", `{"data":[{"id":1}],"pagination":{"totalCount":1}}`, 1},
		{"nested data items", `{"data":{"items":[{"id":1},{"id":2}],"totalCount":2}}`, 2},
		{"empty page", `{"items":[],"totalCount":0}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				_, _ = w.Write([]byte(tt.body))
			}, ClientConfig{PageSize: 10})

			products, err := client.ListProducts(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(products) != tt.want {
				t.Errorf("len(products) = %d, want %d", len(products), tt.want)
			}
			if calls.Load() != 1 {
				t.Errorf("calls = %d, want 1", calls.Load())
			}
		})
	}
}

func TestListProducts_MaxPages(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprintf(w, `{"items":[{"id":%s}],"totalCount":1000}`, r.URL.Query().Get("page"))
	}, ClientConfig{PageSize: 1, MaxPages: 3})

	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 3 || calls.Load() != 3 {
		t.Errorf("got %d products over %d calls, want 3 and 3", len(products), calls.Load())
	}
}

func TestGetProduct(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/42":
			_, _ = w.Write([]byte(`{"id":42,"name":"Yirgacheffe"}`))
		case "/products/43":
			_, _ = w.Write([]byte(`{"data":{"id":43,"name":"Huila"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Product not found"}`))
		}
	}, ClientConfig{})

	p, err := client.GetProduct(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID() != "42" {
		t.Errorf("ID() = %q, want 42", p.ID())
	}

	p, err = client.GetProduct(context.Background(), "43")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID() != "43" {
		t.Errorf("wrapped ID() = %q, want 43", p.ID())
	}

	_, err = client.GetProduct(context.Background(), "99")
	var catErr *core.CatalogError
	if !errors.As(err, &catErr) {
		t.Fatalf("expected CatalogError, got %v", err)
	}
	if catErr.Type != core.ErrorTypeNotFound || catErr.Message != "Product not found" {
		t.Errorf("error = %+v", catErr)
	}

	if _, err := client.GetProduct(context.Background(), ""); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"name":"Espresso"}]`))
	}, ClientConfig{MaxRetries: 2})

	categories, err := client.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 1 || calls.Load() != 3 {
		t.Errorf("got %d categories over %d calls, want 1 and 3", len(categories), calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"pageSize out of range"}`))
	}, ClientConfig{MaxRetries: 3})

	_, err := client.ListProducts(context.Background())
	var catErr *core.CatalogError
	if !errors.As(err, &catErr) || catErr.Type != core.ErrorTypeInvalidRequest {
		t.Fatalf("expected invalid request error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, ClientConfig{
		MaxRetries: 0,
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 0.5,
			MinRequests:      2,
		},
	})

	for i := 0; i < 2; i++ {
		if _, err := client.ListCategories(context.Background()); err == nil {
			t.Fatal("expected upstream error")
		}
	}

	_, err := client.ListCategories(context.Background())
	var catErr *core.CatalogError
	if !errors.As(err, &catErr) || catErr.Type != core.ErrorTypeUnavailable {
		t.Fatalf("expected unavailable error once the breaker opened, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (open breaker must not reach the API)", calls.Load())
	}
}

func TestClient_OversizedBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"`))
		_, _ = w.Write([]byte(strings.Repeat("x", maxBodySize)))
		_, _ = w.Write([]byte(`"}]`))
	}, ClientConfig{MaxRetries: 0})

	_, err := client.ListCategories(context.Background())
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected 'too large' error, got: %v", err)
	}
}

func TestClient_ForwardsRequestID(t *testing.T) {
	var got atomic.Value
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`[]`))
	}, ClientConfig{})

	ctx := core.WithRequestID(context.Background(), "req-123")
	if _, err := client.ListCategories(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Load() != "req-123" {
		t.Errorf("X-Request-ID = %v, want req-123", got.Load())
	}
}
