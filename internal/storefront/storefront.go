// Package storefront is the single source of truth for the storefront's
// language and its normalized catalog. It serves products and categories from
// the cache store, falls back to the catalog API on a miss, writes results
// through, warms their images in the background and revalidates periodically.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"roastery/internal/cache"
	"roastery/internal/catalog"
	"roastery/internal/core"
	"roastery/internal/images"
	"roastery/internal/storage"
)

const (
	// PreferenceKey is the storage key of the persisted language preference.
	// It lives outside the cache namespace so clearing the cache keeps it.
	PreferenceKey = "preferred_language"

	// DefaultRevalidateInterval is how often cache freshness is checked.
	DefaultRevalidateInterval = time.Hour

	// DefaultRefreshTimeout bounds one catalog reload, whether revalidation,
	// a language change or a cache clear triggered it.
	DefaultRefreshTimeout = 2 * time.Minute
)

// Source loads normalized catalog data from upstream.
type Source interface {
	Products(ctx context.Context, lang core.Language) ([]catalog.Outcome, error)
	Categories(ctx context.Context, lang core.Language) (catalog.CategorySet, error)
}

// Warmer preloads image URLs.
type Warmer interface {
	PreloadAll(ctx context.Context, urls []string, concurrency int) images.PreloadResult
}

// Config holds storefront behavior settings.
type Config struct {
	DefaultLanguage    core.Language
	CacheDuration      time.Duration
	RevalidateInterval time.Duration
	RefreshTimeout     time.Duration
	PreloadConcurrency int
}

// Deps are the collaborators a Storefront is wired with. Warmer and Sink are optional.
type Deps struct {
	Source      Source
	Cache       *cache.Store
	Preferences storage.Storage
	Warmer      Warmer
	Sink        core.PresentationSink
}

// State is a point-in-time copy of the storefront.
type State struct {
	Language      core.Language   `json:"language"`
	Direction     core.Direction  `json:"direction"`
	Products      []core.Product  `json:"products"`
	Categories    []core.Category `json:"categories"`
	AllCategories []core.Category `json:"allCategories"`
	Loading       bool            `json:"loading"`
	Error         string          `json:"error,omitempty"`
	// BaselineProducts counts products served without their detail record.
	BaselineProducts int       `json:"baselineProducts"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Fingerprint      string    `json:"fingerprint"`
}

// domain tracks the fetch lifecycle of one data domain.
type domain struct {
	name    string
	gen     uint64
	loaded  bool
	loading bool
	err     string
}

// Storefront orchestrates language state and catalog loading.
type Storefront struct {
	cfg    Config
	source Source
	cache  *cache.Store
	prefs  storage.Storage
	warmer Warmer
	sink   core.PresentationSink

	mu            sync.RWMutex
	lang          core.Language
	products      []core.Product
	baseline      int
	categories    []core.Category
	allCategories []core.Category
	productsDom   domain
	categoriesDom domain
	updatedAt     time.Time
	fingerprint   string

	bgCtx       context.Context
	bgCancel    context.CancelFunc
	wg          sync.WaitGroup
	stopRefresh func()
	closed      bool
	closeOnce   sync.Once
}

// New creates a storefront. Call Start to load data.
func New(cfg Config, deps Deps) (*Storefront, error) {
	if deps.Source == nil {
		return nil, errors.New("storefront: source is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("storefront: cache store is required")
	}
	if !cfg.DefaultLanguage.Valid() {
		cfg.DefaultLanguage = core.LanguageEnglish
	}
	if cfg.RevalidateInterval <= 0 {
		cfg.RevalidateInterval = DefaultRevalidateInterval
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	if cfg.PreloadConcurrency <= 0 {
		cfg.PreloadConcurrency = images.DefaultPreloadConcurrency
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Storefront{
		cfg:           cfg,
		source:        deps.Source,
		cache:         deps.Cache,
		prefs:         deps.Preferences,
		warmer:        deps.Warmer,
		sink:          deps.Sink,
		lang:          cfg.DefaultLanguage,
		productsDom:   domain{name: "products"},
		categoriesDom: domain{name: "categories"},
		bgCtx:         bgCtx,
		bgCancel:      bgCancel,
	}, nil
}

// Start restores the language preference, loads both domains and starts the
// revalidation loop. Load failures are reported through State.Error, not here.
func (s *Storefront) Start(ctx context.Context) {
	if lang, ok := s.readPreference(ctx); ok {
		s.mu.Lock()
		s.lang = lang
		s.mu.Unlock()
	}
	s.publish()

	if err := s.loadAll(ctx); err != nil {
		slog.Warn("initial catalog load failed", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && s.stopRefresh == nil {
		s.stopRefresh = s.startRevalidation(s.cfg.RevalidateInterval)
	}
}

// Close stops the revalidation loop, cancels background image warming and
// waits for it to finish. Safe to call more than once.
func (s *Storefront) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		stop := s.stopRefresh
		s.mu.Unlock()

		if stop != nil {
			stop()
		}
		s.bgCancel()
		s.wg.Wait()
	})
}

// Language returns the current language.
func (s *Storefront) Language() core.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lang
}

// Presentation returns the document presentation for the current language.
func (s *Storefront) Presentation() core.Presentation {
	return core.PresentationFor(s.Language())
}

// ToggleLanguage flips the language and reloads; see SetLanguage.
func (s *Storefront) ToggleLanguage(ctx context.Context) (core.Language, error) {
	next := s.Language().Toggle()
	return next, s.SetLanguage(ctx, next)
}

// SetLanguage switches language, persists the choice, publishes the new
// presentation and reloads both domains against the new language's cache
// keys. The other language's cache entries are left alone. The returned
// error reports load failures; the language change itself always applies.
// The reload does not end when ctx is cancelled; see detach.
func (s *Storefront) SetLanguage(ctx context.Context, lang core.Language) error {
	if !lang.Valid() {
		return core.NewInvalidRequestError(fmt.Sprintf("unsupported language %q", lang), nil)
	}
	ctx, cancel := s.detach(ctx)
	defer cancel()

	s.mu.Lock()
	changed := s.lang != lang
	s.lang = lang
	s.mu.Unlock()

	s.writePreference(ctx, lang)
	if !changed {
		return nil
	}
	slog.Info("language changed", "language", lang)
	s.publish()
	return s.loadAll(ctx)
}

// Snapshot returns a copy of the current state.
func (s *Storefront) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	errMsg := s.productsDom.err
	if errMsg == "" {
		errMsg = s.categoriesDom.err
	}
	return State{
		Language:         s.lang,
		Direction:        s.lang.Direction(),
		Products:         append([]core.Product(nil), s.products...),
		Categories:       append([]core.Category(nil), s.categories...),
		AllCategories:    append([]core.Category(nil), s.allCategories...),
		Loading:          s.productsDom.loading || s.categoriesDom.loading,
		Error:            errMsg,
		BaselineProducts: s.baseline,
		UpdatedAt:        s.updatedAt,
		Fingerprint:      s.fingerprint,
	}
}

// Fingerprint identifies the current snapshot.
func (s *Storefront) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint
}

// Product finds a product by id or slug.
func (s *Storefront) Product(idOrSlug string) (core.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == idOrSlug || (p.Slug != "" && p.Slug == idOrSlug) {
			return p, true
		}
	}
	return core.Product{}, false
}

// Revalidate reloads each domain whose current-language cache entry expired.
// Fresh domains are left alone.
func (s *Storefront) Revalidate(ctx context.Context) error {
	lang := s.Language()
	var errs []error
	if s.cache.IsExpired(ctx, s.cache.Key(productsName(lang))) {
		slog.Debug("products cache expired, revalidating", "language", lang)
		errs = append(errs, s.loadProducts(ctx, true))
	}
	if s.cache.IsExpired(ctx, s.cache.Key(categoriesName(lang))) ||
		s.cache.IsExpired(ctx, s.cache.Key(allCategoriesName(lang))) {
		slog.Debug("categories cache expired, revalidating", "language", lang)
		errs = append(errs, s.loadCategories(ctx, true))
	}
	return errors.Join(errs...)
}

// ClearCache removes every cache entry in the namespace and reloads.
// It returns how many keys were removed.
func (s *Storefront) ClearCache(ctx context.Context) (int, error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()
	removed := s.cache.Clear(ctx)
	slog.Info("catalog cache cleared", "removed", removed)
	return removed, s.loadAll(ctx)
}

// CacheAges reports the age in minutes of every live catalog cache entry,
// keyed by storage key, across both languages.
func (s *Storefront) CacheAges(ctx context.Context) map[string]int {
	ages := make(map[string]int)
	for _, lang := range []core.Language{core.LanguageEnglish, core.LanguageArabic} {
		for _, name := range []string{productsName(lang), categoriesName(lang), allCategoriesName(lang)} {
			key := s.cache.Key(name)
			if age, ok := s.cache.Age(ctx, key); ok {
				ages[key] = age
			}
		}
	}
	return ages
}

// detach derives the context of a caller-triggered load. The load is
// process-wide, so it keeps ctx's values, such as the request ID, but not
// its cancellation. It ends at the refresh timeout or when the storefront
// is closed.
func (s *Storefront) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RefreshTimeout)
	stop := context.AfterFunc(s.bgCtx, cancel)
	return loadCtx, func() {
		stop()
		cancel()
	}
}

func (s *Storefront) publish() {
	if s.sink != nil {
		s.sink.ApplyPresentation(s.Presentation())
	}
}

func (s *Storefront) readPreference(ctx context.Context) (core.Language, bool) {
	if s.prefs == nil {
		return "", false
	}
	raw, err := s.prefs.Get(ctx, PreferenceKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to read language preference", "error", err)
		}
		return "", false
	}
	lang, err := core.ParseLanguage(string(raw))
	if err != nil {
		slog.Warn("ignoring invalid language preference", "value", string(raw))
		return "", false
	}
	return lang, true
}

func (s *Storefront) writePreference(ctx context.Context, lang core.Language) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.Set(ctx, PreferenceKey, []byte(lang)); err != nil {
		slog.Warn("failed to persist language preference", "language", lang, "error", err)
	}
}

// startRevalidation starts the periodic freshness check and returns its stop func.
func (s *Storefront) startRevalidation(interval time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshCtx, refreshCancel := context.WithTimeout(ctx, s.cfg.RefreshTimeout)
				if err := s.Revalidate(refreshCtx); err != nil {
					slog.Warn("background catalog revalidation failed", "error", err)
				}
				refreshCancel()
			}
		}
	}()

	return cancel
}

// warm preloads urls in the background. Failures never surface.
func (s *Storefront) warm(urls []string) {
	if s.warmer == nil || len(urls) == 0 {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		res := s.warmer.PreloadAll(s.bgCtx, urls, s.cfg.PreloadConcurrency)
		slog.Debug("image warming finished", "attempted", res.Attempted, "succeeded", res.Succeeded, "failed", res.Failed)
	}()
}

// refreshFingerprint must be called with s.mu held.
func (s *Storefront) refreshFingerprint() {
	s.updatedAt = time.Now()
	s.fingerprint = catalog.Fingerprint(s.lang, s.products, s.categories, s.allCategories)
}

func productsName(lang core.Language) string      { return "products_" + string(lang) }
func categoriesName(lang core.Language) string    { return "categories_" + string(lang) }
func allCategoriesName(lang core.Language) string { return "all_categories_" + string(lang) }
