package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"roastery/internal/observability"
)

const (
	// DefaultPreloadTimeout bounds a single image load.
	DefaultPreloadTimeout = 5 * time.Second

	// DefaultPreloadConcurrency is the worker count of PreloadAll.
	DefaultPreloadConcurrency = 2

	// maxImageBody caps how much of an image is read to warm caches.
	maxImageBody = 20 * 1024 * 1024
)

// Loader performs one image load. Load must return soon after ctx is done:
// Preload stops waiting at its timeout but cannot stop Load itself, so a
// Loader that ignores ctx keeps running past it and PreloadAll's
// concurrency bound no longer limits how many loads are in flight.
type Loader interface {
	Load(ctx context.Context, url string) error
}

// HTTPLoader warms an image by fetching it through an HTTP client, which
// primes any CDN or proxy cache between the service and the origin.
type HTTPLoader struct {
	Client *http.Client
}

func (l *HTTPLoader) Load(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("loading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxImageBody)); err != nil {
		return fmt.Errorf("reading image body: %w", err)
	}
	return nil
}

// PreloadResult summarizes one PreloadAll batch.
type PreloadResult struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Preloader warms image URLs without blocking callers on failures.
type Preloader struct {
	loader  Loader
	warmed  *WarmedSet
	timeout time.Duration
}

// NewPreloader creates a preloader. warmed may be nil to skip recording.
func NewPreloader(loader Loader, warmed *WarmedSet, timeout time.Duration) *Preloader {
	if timeout <= 0 {
		timeout = DefaultPreloadTimeout
	}
	return &Preloader{loader: loader, warmed: warmed, timeout: timeout}
}

// Preload loads a single URL. On timeout the in-flight load is cancelled and
// Preload returns without waiting for it.
func (p *Preloader) Preload(ctx context.Context, url string) error {
	loadCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	observability.ImagePreloadsInFlight.Inc()
	defer observability.ImagePreloadsInFlight.Dec()

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.loader.Load(loadCtx, url)
	}()

	select {
	case err := <-errCh:
		return err
	case <-loadCtx.Done():
		return fmt.Errorf("preloading %s: %w", url, loadCtx.Err())
	}
}

// PreloadAll runs a fixed pool of workers that pull URLs from a shared cursor
// until every URL has been attempted. Individual failures are logged and
// counted, never returned; successes are recorded in the warmed set.
func (p *Preloader) PreloadAll(ctx context.Context, urls []string, concurrency int) PreloadResult {
	if len(urls) == 0 {
		return PreloadResult{}
	}
	if concurrency <= 0 {
		concurrency = DefaultPreloadConcurrency
	}
	if concurrency > len(urls) {
		concurrency = len(urls)
	}

	var (
		cursor    atomic.Int64
		succeeded atomic.Int64
		mu        sync.Mutex
		warmed    = make([]string, 0, len(urls))
		wg        sync.WaitGroup
	)

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(urls) {
					return
				}
				url := urls[i]
				if err := p.Preload(ctx, url); err != nil {
					slog.Debug("image preload failed", "url", url, "error", err)
					observability.ImagePreloads.WithLabelValues("failed").Inc()
					continue
				}
				observability.ImagePreloads.WithLabelValues("ok").Inc()
				succeeded.Add(1)
				mu.Lock()
				warmed = append(warmed, url)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if p.warmed != nil && len(warmed) > 0 {
		p.warmed.Mark(ctx, warmed)
	}

	ok := int(succeeded.Load())
	return PreloadResult{
		Attempted: len(urls),
		Succeeded: ok,
		Failed:    len(urls) - ok,
	}
}
