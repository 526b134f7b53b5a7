package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "roastery/docs"
)

// DefaultBodySizeLimit caps request bodies when Config leaves it empty.
const DefaultBodySizeLimit = "1M"

const defaultMetricsPath = "/metrics"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MasterKey       string // Optional: protects /admin when set
	MetricsEnabled  bool   // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string // HTTP path for metrics endpoint (default: /metrics)
	BodySizeLimit   string // Max request body size, echo syntax (default: 1M)
	SiteBaseURL     string // Storefront origin used in the sitemap and feed
	Currency        string // ISO 4217 code for the product feed
	SwaggerEnabled  bool   // Whether to serve Swagger UI at /swagger/index.html
	// Presentation, when set, adds Content-Language and X-Text-Direction to responses.
	Presentation *Presentation
}

// New creates a new HTTP server over the storefront catalog.
// warmed may be nil, in which case /admin/images reports nothing.
func New(catalog Catalog, warmed WarmedImages, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(catalog, warmed, cfg.SiteBaseURL, cfg.Currency)

	bodySizeLimit := cfg.BodySizeLimit
	if bodySizeLimit == "" {
		bodySizeLimit = DefaultBodySizeLimit
	}

	// Global middleware stack (order matters)
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(RequestContext())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Debug("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodySizeLimit))
	if cfg.Presentation != nil {
		e.Use(cfg.Presentation.Middleware())
	}

	// Public routes
	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		e.GET(metricsPath(cfg.MetricsEndpoint), echo.WrapHandler(promhttp.Handler()))
	}

	if cfg.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	v1 := e.Group("/v1")
	v1.GET("/state", handler.State)
	v1.GET("/products", handler.ListProducts)
	v1.GET("/products/:id", handler.GetProduct)
	v1.GET("/categories", handler.HomepageCategories)
	v1.GET("/categories/all", handler.AllCategories)
	v1.POST("/language/toggle", handler.ToggleLanguage)
	v1.PUT("/language", handler.SetLanguage)

	e.GET("/sitemap.xml", handler.Sitemap)
	e.GET("/feeds/products.csv", handler.ProductFeed)

	admin := e.Group("/admin", AuthMiddleware(cfg.MasterKey))
	admin.GET("/cache", handler.CacheStatus)
	admin.POST("/cache/clear", handler.ClearCache)
	admin.GET("/images", handler.WarmedImages)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// metricsPath normalizes the configured metrics endpoint. Paths that would
// shadow API or admin routes fall back to /metrics.
func metricsPath(endpoint string) string {
	if endpoint == "" {
		return defaultMetricsPath
	}
	p := path.Clean("/" + endpoint)
	for _, reserved := range []string{"/v1", "/admin", "/health", "/sitemap.xml", "/feeds", "/swagger"} {
		if p == reserved || strings.HasPrefix(p, reserved+"/") {
			slog.Warn("metrics endpoint collides with an application route, using default",
				"endpoint", endpoint, "default", defaultMetricsPath)
			return defaultMetricsPath
		}
	}
	if p == "/" {
		return defaultMetricsPath
	}
	return p
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
