package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"roastery/internal/catalog"
	"roastery/internal/core"
	"roastery/internal/observability"
)

// begin starts a load of d: it takes a new generation token and captures the
// language the load is for. Any load holding an older token is superseded.
func (s *Storefront) begin(d *domain) (uint64, core.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.gen++
	return d.gen, s.lang
}

// currentLocked reports whether a load may still commit. Callers hold s.mu.
func (s *Storefront) currentLocked(d *domain, gen uint64, lang core.Language) bool {
	return d.gen == gen && s.lang == lang
}

// markFetching flags d as loading. A silent fetch, the periodic revalidation,
// does so only while d has nothing to show.
func (s *Storefront) markFetching(d *domain, gen uint64, lang core.Language, silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentLocked(d, gen, lang) && (!silent || !d.loaded) {
		d.loading = true
	}
}

// aborted reports whether a fetch ended because its own context did. Its
// result may be a partial fan-out, so it is neither committed nor cached.
func aborted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// abort ends an interrupted load. The domain keeps its last data and error.
func (s *Storefront) abort(ctx context.Context, d *domain, gen uint64, lang core.Language, err error) error {
	if err == nil {
		err = context.Cause(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(d, gen, lang) {
		s.discarded(d, gen, lang)
	} else {
		slog.Warn("catalog load aborted", "domain", d.name, "language", lang, "error", err)
		d.loading = false
	}
	return fmt.Errorf("%s load aborted: %w", d.name, err)
}

func (s *Storefront) loadAll(ctx context.Context) error {
	var (
		wg         sync.WaitGroup
		productErr error
		catErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		productErr = s.loadProducts(ctx, false)
	}()
	go func() {
		defer wg.Done()
		catErr = s.loadCategories(ctx, false)
	}()
	wg.Wait()
	return errors.Join(productErr, catErr)
}

func (s *Storefront) loadProducts(ctx context.Context, silent bool) error {
	d := &s.productsDom
	gen, lang := s.begin(d)
	key := s.cache.Key(productsName(lang))

	var cached []core.Product
	if s.cache.Get(ctx, key, &cached) {
		s.commitProducts(gen, lang, cached, baselineCount(cached))
		return nil
	}

	s.markFetching(d, gen, lang, silent)
	outcomes, err := s.source.Products(ctx, lang)
	if aborted(ctx, err) {
		return s.abort(ctx, d, gen, lang, err)
	}
	if err != nil {
		s.fail(d, gen, lang, err, func() {
			s.products = nil
			s.baseline = 0
		})
		return err
	}

	products := catalog.ProductsOf(outcomes)
	if !s.commitProducts(gen, lang, products, baselineCount(products)) {
		return nil
	}
	s.cache.Set(ctx, key, products, s.cfg.CacheDuration)

	var urls []string
	for _, p := range products {
		urls = append(urls, p.Images...)
	}
	s.warm(urls)
	return nil
}

func (s *Storefront) loadCategories(ctx context.Context, silent bool) error {
	d := &s.categoriesDom
	gen, lang := s.begin(d)
	homeKey := s.cache.Key(categoriesName(lang))
	allKey := s.cache.Key(allCategoriesName(lang))

	var set catalog.CategorySet
	if s.cache.Get(ctx, allKey, &set.All) && s.cache.Get(ctx, homeKey, &set.Homepage) {
		s.commitCategories(gen, lang, set)
		return nil
	}

	s.markFetching(d, gen, lang, silent)
	set, err := s.source.Categories(ctx, lang)
	if aborted(ctx, err) {
		return s.abort(ctx, d, gen, lang, err)
	}
	if err != nil {
		s.fail(d, gen, lang, err, func() {
			s.categories = nil
			s.allCategories = nil
		})
		return err
	}

	if !s.commitCategories(gen, lang, set) {
		return nil
	}
	s.cache.Set(ctx, homeKey, set.Homepage, s.cfg.CacheDuration)
	s.cache.Set(ctx, allKey, set.All, s.cfg.CacheDuration)

	urls := make([]string, 0, len(set.All))
	for _, c := range set.All {
		if c.Image != "" {
			urls = append(urls, c.Image)
		}
	}
	s.warm(urls)
	return nil
}

func (s *Storefront) commitProducts(gen uint64, lang core.Language, products []core.Product, baseline int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(&s.productsDom, gen, lang) {
		s.discarded(&s.productsDom, gen, lang)
		return false
	}
	s.products = products
	s.baseline = baseline
	s.productsDom.settle("")
	s.refreshFingerprint()
	return true
}

func (s *Storefront) commitCategories(gen uint64, lang core.Language, set catalog.CategorySet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(&s.categoriesDom, gen, lang) {
		s.discarded(&s.categoriesDom, gen, lang)
		return false
	}
	s.categories = set.Homepage
	s.allCategories = set.All
	s.categoriesDom.settle("")
	s.refreshFingerprint()
	return true
}

// fail records a list-level failure: the domain's data is reset and its
// error set, unless a newer load superseded this one.
func (s *Storefront) fail(d *domain, gen uint64, lang core.Language, err error, reset func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(d, gen, lang) {
		s.discarded(d, gen, lang)
		return
	}
	slog.Error("catalog load failed", "domain", d.name, "language", lang, "error", err)
	reset()
	d.loaded = false
	d.loading = false
	d.err = err.Error()
	s.refreshFingerprint()
}

// discarded logs a superseded result. Callers hold s.mu.
func (s *Storefront) discarded(d *domain, gen uint64, lang core.Language) {
	slog.Debug("discarding superseded catalog load",
		"domain", d.name, "generation", gen, "current_generation", d.gen,
		"language", lang, "current_language", s.lang)
	observability.StaleResultsDiscarded.WithLabelValues(d.name).Inc()
}

func (d *domain) settle(errMsg string) {
	d.loaded = errMsg == ""
	d.loading = false
	d.err = errMsg
}

func baselineCount(products []core.Product) int {
	n := 0
	for _, p := range products {
		if !p.Enriched {
			n++
		}
	}
	return n
}
