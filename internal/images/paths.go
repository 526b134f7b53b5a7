package images

import (
	"strings"

	"github.com/tidwall/gjson"
)

// The catalog API has named product image fields differently across
// endpoint versions. The tables below are ordered by priority; the first
// non-empty string wins.

// mainImagePaths check an explicit main-image object.
var mainImagePaths = []string{
	"mainImage.imagePath",
	"mainImage.imageUrl",
	"mainImage.url",
	"mainImage.path",
}

// flatImagePaths check flat fields on the product itself.
var flatImagePaths = []string{
	"mainImageUrl",
	"mainImagePath",
	"imagePath",
	"imageUrl",
	"image",
	"thumbnailUrl",
}

// galleryItemFields check one entry of the images array.
var galleryItemFields = []string{
	"imagePath",
	"imageUrl",
	"url",
	"path",
}

// ProductImagePath returns the best image path of a raw product record:
// main-image object, then flat fields, then the gallery item flagged isMain,
// then the first gallery item.
func ProductImagePath(raw []byte) (string, bool) {
	for _, p := range mainImagePaths {
		if v, ok := stringAt(raw, p); ok {
			return v, true
		}
	}
	for _, p := range flatImagePaths {
		if v, ok := stringAt(raw, p); ok {
			return v, true
		}
	}
	if v, ok := galleryPath(gjson.GetBytes(raw, `images.#(isMain==true)`)); ok {
		return v, true
	}
	if v, ok := galleryPath(gjson.GetBytes(raw, "images.0")); ok {
		return v, true
	}
	return "", false
}

// ProductImagePaths collects every distinct candidate path, the
// ProductImagePath result first.
func ProductImagePaths(raw []byte) []string {
	var paths []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	if primary, ok := ProductImagePath(raw); ok {
		add(primary)
	}
	for _, p := range mainImagePaths {
		if v, ok := stringAt(raw, p); ok {
			add(v)
		}
	}
	for _, p := range flatImagePaths {
		if v, ok := stringAt(raw, p); ok {
			add(v)
		}
	}
	gjson.GetBytes(raw, "images").ForEach(func(_, item gjson.Result) bool {
		if v, ok := galleryPath(item); ok {
			add(v)
		}
		return true
	})
	return paths
}

// ProductImageURL resolves the best image of a raw product record.
func (r *Resolver) ProductImageURL(raw []byte) string {
	path, _ := ProductImagePath(raw)
	return r.ProductURL(path)
}

// ProductImageURLs resolves every distinct image of a raw product record.
// The result always has at least one entry, the product fallback.
func (r *Resolver) ProductImageURLs(raw []byte) []string {
	paths := ProductImagePaths(raw)
	if len(paths) == 0 {
		return []string{r.ProductFallbackURL()}
	}

	urls := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		u := r.ProductURL(p)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

func stringAt(raw []byte, path string) (string, bool) {
	res := gjson.GetBytes(raw, path)
	if res.Type != gjson.String {
		return "", false
	}
	v := strings.TrimSpace(res.Str)
	return v, v != ""
}

// galleryPath reads a gallery entry, which is either an object or a bare string.
func galleryPath(item gjson.Result) (string, bool) {
	switch {
	case !item.Exists():
		return "", false
	case item.Type == gjson.String:
		v := strings.TrimSpace(item.Str)
		return v, v != ""
	case item.IsObject():
		for _, f := range galleryItemFields {
			if v := item.Get(f); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
				return strings.TrimSpace(v.Str), true
			}
		}
	}
	return "", false
}
