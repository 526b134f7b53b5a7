package images

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"roastery/internal/storage"
)

// WarmedKeySuffix is appended to the cache namespace to form the storage key
// of the warmed-URL record, e.g. "roastery_cached_images".
const WarmedKeySuffix = "_cached_images"

// WarmedSet is the persisted set of URLs that loaded successfully at least
// once. Storage failures are logged and otherwise ignored.
type WarmedSet struct {
	backend storage.Storage
	key     string
	mu      sync.Mutex
}

// NewWarmedSet creates a warmed-URL record under prefix+WarmedKeySuffix.
func NewWarmedSet(backend storage.Storage, prefix string) *WarmedSet {
	return &WarmedSet{backend: backend, key: prefix + WarmedKeySuffix}
}

// Key returns the storage key of the record.
func (w *WarmedSet) Key() string {
	return w.key
}

// Mark merges urls into the record.
func (w *WarmedSet) Mark(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	set := w.load(ctx)
	before := len(set)
	for _, u := range urls {
		if u != "" {
			set[u] = struct{}{}
		}
	}
	if len(set) == before {
		return
	}

	data, err := json.Marshal(sortedKeys(set))
	if err != nil {
		slog.Warn("warmed images: marshal failed", "error", err)
		return
	}
	if err := w.backend.Set(ctx, w.key, data); err != nil {
		slog.Warn("warmed images: write failed", "key", w.key, "error", err)
	}
}

// Has reports whether url was warmed before.
func (w *WarmedSet) Has(ctx context.Context, url string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.load(ctx)[url]
	return ok
}

// All returns every warmed URL, sorted.
func (w *WarmedSet) All(ctx context.Context) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return sortedKeys(w.load(ctx))
}

// Missing filters urls down to those not warmed yet, preserving order.
func (w *WarmedSet) Missing(ctx context.Context, urls []string) []string {
	w.mu.Lock()
	set := w.load(ctx)
	w.mu.Unlock()

	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := set[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

func (w *WarmedSet) load(ctx context.Context) map[string]struct{} {
	set := make(map[string]struct{})
	raw, err := w.backend.Get(ctx, w.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("warmed images: read failed", "key", w.key, "error", err)
		}
		return set
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		slog.Warn("warmed images: unreadable record, starting over", "key", w.key, "error", err)
		return set
	}
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
