package images

import (
	"errors"
	"testing"
)

type failingRegion struct{}

func (failingRegion) ActiveRegion() (Region, error) {
	return "", errors.New("region store offline")
}

func testResolver(region RegionSource) *Resolver {
	return NewResolver(ResolverConfig{
		DefaultAPIBase:   "https://api.example.com/",
		PrimaryAPIBase:   "https://eu.api.example.com",
		SecondaryAPIBase: "https://me.api.example.com",
		SiteBase:         "https://shop.example.com",
	}, region)
}

func TestResolver_APIBase(t *testing.T) {
	tests := []struct {
		name   string
		region RegionSource
		want   string
	}{
		{"nil source", nil, "https://api.example.com"},
		{"primary", StaticRegion(RegionPrimary), "https://eu.api.example.com"},
		{"secondary", StaticRegion(RegionSecondary), "https://me.api.example.com"},
		{"unknown region", StaticRegion("mars"), "https://api.example.com"},
		{"source error", failingRegion{}, "https://api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testResolver(tt.region).APIBase(); got != tt.want {
				t.Errorf("APIBase() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_URL(t *testing.T) {
	r := testResolver(nil)

	tests := []struct {
		name     string
		path     string
		fallback string
		want     string
	}{
		{"empty path uses local fallback", "", "/images/default-product.webp", "https://shop.example.com/images/default-product.webp"},
		{"whitespace path uses fallback", "   ", "images/x.webp", "https://shop.example.com/images/x.webp"},
		{"absolute http passes through", "http://cdn.example.com/a.jpg", "/f.webp", "http://cdn.example.com/a.jpg"},
		{"absolute https passes through", "HTTPS://cdn.example.com/a.jpg", "/f.webp", "HTTPS://cdn.example.com/a.jpg"},
		{"relative with slash", "/uploads/a.jpg", "/f.webp", "https://api.example.com/uploads/a.jpg"},
		{"relative without slash", "uploads/a.jpg", "/f.webp", "https://api.example.com/uploads/a.jpg"},
		{"absolute fallback", "", "https://static.example.com/f.webp", "https://static.example.com/f.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.URL(tt.path, tt.fallback); got != tt.want {
				t.Errorf("URL(%q, %q) = %q, want %q", tt.path, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestResolver_FallbacksAreLocalNotRegional(t *testing.T) {
	r := testResolver(StaticRegion(RegionSecondary))

	if got := r.ProductURL(""); got != "https://shop.example.com"+DefaultProductFallback {
		t.Errorf("ProductURL(\"\") = %q", got)
	}
	if got := r.CategoryURL(""); got != "https://shop.example.com"+DefaultCategoryFallback {
		t.Errorf("CategoryURL(\"\") = %q", got)
	}
	if got := r.CategoryURL("cats/espresso.png"); got != "https://me.api.example.com/cats/espresso.png" {
		t.Errorf("CategoryURL(relative) = %q", got)
	}
}

func TestProductImagePath_Priority(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			name:   "main image object wins over everything",
			raw:    `{"mainImage":{"imagePath":"/m.jpg"},"imagePath":"/flat.jpg","images":[{"imagePath":"/g.jpg","isMain":true}]}`,
			want:   "/m.jpg",
			wantOK: true,
		},
		{
			name:   "flat field wins over gallery",
			raw:    `{"imageUrl":"/flat.jpg","images":[{"imagePath":"/g.jpg","isMain":true}]}`,
			want:   "/flat.jpg",
			wantOK: true,
		},
		{
			name:   "flagged gallery item wins over first",
			raw:    `{"images":[{"imagePath":"/first.jpg"},{"imagePath":"/main.jpg","isMain":true}]}`,
			want:   "/main.jpg",
			wantOK: true,
		},
		{
			name:   "first gallery item",
			raw:    `{"images":[{"url":"/first.jpg"},{"url":"/second.jpg"}]}`,
			want:   "/first.jpg",
			wantOK: true,
		},
		{
			name:   "gallery of bare strings",
			raw:    `{"images":["/a.jpg","/b.jpg"]}`,
			want:   "/a.jpg",
			wantOK: true,
		},
		{
			name:   "blank fields are skipped",
			raw:    `{"mainImage":{"imagePath":"  "},"imagePath":"","image":"/img.jpg"}`,
			want:   "/img.jpg",
			wantOK: true,
		},
		{
			name:   "non-string image field is ignored",
			raw:    `{"image":{"id":4},"thumbnailUrl":"/t.jpg"}`,
			want:   "/t.jpg",
			wantOK: true,
		},
		{
			name: "nothing",
			raw:  `{"id":1,"name":"Blend"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ProductImagePath([]byte(tt.raw))
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ProductImagePath() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolver_ProductImageURLs(t *testing.T) {
	r := testResolver(nil)

	t.Run("never empty", func(t *testing.T) {
		urls := r.ProductImageURLs([]byte(`{"id":7}`))
		if len(urls) != 1 || urls[0] != "https://shop.example.com"+DefaultProductFallback {
			t.Errorf("ProductImageURLs() = %v, want only the fallback", urls)
		}
	})

	t.Run("distinct and primary first", func(t *testing.T) {
		raw := `{"imagePath":"/b.jpg","images":[{"imagePath":"/a.jpg"},{"imagePath":"b.jpg"},{"imagePath":"https://cdn.example.com/c.jpg"}]}`
		urls := r.ProductImageURLs([]byte(raw))
		want := []string{
			"https://api.example.com/b.jpg",
			"https://api.example.com/a.jpg",
			"https://cdn.example.com/c.jpg",
		}
		if len(urls) != len(want) {
			t.Fatalf("ProductImageURLs() = %v, want %v", urls, want)
		}
		for i := range want {
			if urls[i] != want[i] {
				t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
			}
		}
	})
}

func TestHandleError_SwapsOnce(t *testing.T) {
	el := &Element{Src: "https://api.example.com/broken.jpg"}
	fallback := "https://shop.example.com/images/default-product.webp"

	if !HandleError(el, fallback) {
		t.Fatal("first error should swap to fallback")
	}
	if el.Src != fallback {
		t.Errorf("Src = %q, want %q", el.Src, fallback)
	}
	if el.Attrs[FallbackMarker] != "true" {
		t.Error("expected fallback marker to be set")
	}

	// The fallback failing too must not trigger another swap.
	if HandleError(el, "https://other.example.com/x.webp") {
		t.Error("second error should be ignored")
	}
	if el.Src != fallback {
		t.Errorf("Src changed on second error: %q", el.Src)
	}

	if HandleError(nil, fallback) {
		t.Error("nil element should be ignored")
	}
}
