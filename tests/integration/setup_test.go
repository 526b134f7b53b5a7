//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"roastery/config"
	"roastery/internal/app"
	"roastery/internal/images"
	"roastery/tests/integration/dbassert"
)

// TestServerConfig configures how the test server is set up.
type TestServerConfig struct {
	// DBType is "postgresql", "mongodb" or "redis"
	DBType string

	// MasterKey sets the admin master key (empty = unauthenticated admin)
	MasterKey string

	// Compress stores cache entries brotli-compressed
	Compress bool

	// KeepData skips clearing kv_store, to simulate a restart
	KeepData bool
}

// TestServerFixture holds test server resources.
type TestServerFixture struct {
	// ServerURL is the base URL of the test server
	ServerURL string

	// App is the running application
	App *app.App

	// Catalog is the mock catalog API
	Catalog *MockCatalogServer

	// PgPool is the PostgreSQL connection pool (for DB assertions)
	PgPool *pgxpool.Pool

	// MongoDb is the MongoDB database (for DB assertions)
	MongoDb *mongo.Database

	// Redis is the Redis client (for DB assertions)
	Redis *redis.Client

	// DBType is the configured database type
	DBType string

	shutdownOnce sync.Once
}

// SetupTestServer creates a test server with the specified configuration.
// The catalog mock may be shared between fixtures; pass nil for a fresh one.
func SetupTestServer(t *testing.T, cfg TestServerConfig, catalog *MockCatalogServer) *TestServerFixture {
	t.Helper()

	ctx := GetTestContext()
	if catalog == nil {
		catalog = NewMockCatalogServer()
		t.Cleanup(catalog.Close)
	}

	fixture := &TestServerFixture{
		Catalog: catalog,
		DBType:  cfg.DBType,
	}
	switch cfg.DBType {
	case "postgresql":
		fixture.PgPool = GetPostgreSQLPool()
		if !cfg.KeepData {
			dbassert.ClearPostgres(t, ctx, fixture.PgPool)
		}
	case "mongodb":
		fixture.MongoDb = GetMongoDatabase()
		if !cfg.KeepData {
			dbassert.ClearMongo(t, ctx, fixture.MongoDb)
		}
	case "redis":
		fixture.Redis = GetRedisClient()
		if !cfg.KeepData {
			dbassert.ClearRedis(t, ctx, fixture.Redis)
		}
	default:
		t.Fatalf("unsupported DB type: %s", cfg.DBType)
	}

	port, err := findAvailablePort()
	require.NoError(t, err, "failed to find available port")

	appCfg := buildAppConfig(t, cfg, catalog.URL(), port)

	application, err := app.New(ctx, appCfg)
	require.NoError(t, err, "failed to create app")
	fixture.App = application

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	go func() {
		_ = application.Start(fmt.Sprintf("127.0.0.1:%d", port))
	}()

	require.NoError(t, waitForServer(serverURL+"/health"), "server failed to become healthy")
	fixture.ServerURL = serverURL

	t.Cleanup(func() { fixture.Shutdown(t) })
	return fixture
}

// WaitLoaded blocks until the storefront has settled its initial load.
func (f *TestServerFixture) WaitLoaded(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := f.App.Storefront().Snapshot()
		return !s.Loading && (len(s.Products) > 0 || s.Error != "")
	}, 10*time.Second, 50*time.Millisecond, "storefront never finished loading")
}

// Keys lists the persisted keys starting with prefix.
func (f *TestServerFixture) Keys(t *testing.T, prefix string) []string {
	t.Helper()
	ctx := GetTestContext()
	switch f.DBType {
	case "postgresql":
		return dbassert.PostgresKeys(t, ctx, f.PgPool, prefix)
	case "redis":
		return dbassert.RedisKeys(t, ctx, f.Redis, prefix)
	default:
		return dbassert.MongoKeys(t, ctx, f.MongoDb, prefix)
	}
}

// CacheKeys lists the persisted catalog cache entries, leaving out the
// warmed-image record that shares their namespace.
func (f *TestServerFixture) CacheKeys(t *testing.T) []string {
	t.Helper()
	var keys []string
	for _, key := range f.Keys(t, "itest_") {
		if key != "itest"+images.WarmedKeySuffix {
			keys = append(keys, key)
		}
	}
	return keys
}

// Value reads a persisted value.
func (f *TestServerFixture) Value(t *testing.T, key string) []byte {
	t.Helper()
	ctx := GetTestContext()
	switch f.DBType {
	case "postgresql":
		return dbassert.PostgresValue(t, ctx, f.PgPool, key)
	case "redis":
		return dbassert.RedisValue(t, ctx, f.Redis, key)
	default:
		return dbassert.MongoValue(t, ctx, f.MongoDb, key)
	}
}

// Shutdown gracefully shuts down the test server. The shared pool and
// database handles stay open; only the app's own connections are closed.
func (f *TestServerFixture) Shutdown(t *testing.T) {
	t.Helper()
	f.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if f.App != nil {
			require.NoError(t, f.App.Shutdown(ctx), "failed to shutdown app")
		}
	})
}

// buildAppConfig creates an application config for testing.
func buildAppConfig(t *testing.T, cfg TestServerConfig, catalogURL string, port int) *config.Config {
	t.Helper()

	appCfg := config.Defaults()
	appCfg.Server.Port = fmt.Sprintf("%d", port)
	appCfg.Server.MasterKey = cfg.MasterKey
	appCfg.Catalog.DefaultAPIBase = catalogURL
	appCfg.Catalog.MaxRetries = 0
	appCfg.Images.SiteBaseURL = "https://shop.example.com"
	appCfg.Images.PreloadTimeout = 2
	appCfg.Cache.Prefix = "itest"
	appCfg.Cache.Compress = cfg.Compress

	switch cfg.DBType {
	case "postgresql":
		appCfg.Storage.Type = "postgresql"
		appCfg.Storage.PostgreSQL.URL = GetPostgreSQLURL()
		appCfg.Storage.PostgreSQL.MaxConns = 5
	case "mongodb":
		appCfg.Storage.Type = "mongodb"
		appCfg.Storage.MongoDB.URL = GetMongoURL()
		appCfg.Storage.MongoDB.Database = testDatabase
	case "redis":
		appCfg.Storage.Type = "redis"
		appCfg.Storage.Redis.URL = GetRedisURL()
	}

	require.NoError(t, appCfg.Validate())
	return appCfg
}

// waitForServer waits for the server to become healthy.
func waitForServer(healthURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(healthURL)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become healthy within timeout")
}

// findAvailablePort finds an available TCP port on loopback.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// MockCatalogServer simulates the catalog API and serves the product images
// it references.
type MockCatalogServer struct {
	server       *httptest.Server
	listCalls    atomic.Int32
	detailCalls  atomic.Int32
	imageCalls   atomic.Int32
	failProducts atomic.Bool
}

// NewMockCatalogServer creates a new mock catalog API.
func NewMockCatalogServer() *MockCatalogServer {
	m := &MockCatalogServer{}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

func (m *MockCatalogServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/products":
		m.listCalls.Add(1)
		if m.failProducts.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"database offline"}`))
			return
		}
		writeJSON(w, `{"items":[{"id":1,"price":40},{"id":2,"price":22},{"id":3,"price":18}],"totalCount":3}`)
	case r.URL.Path == "/products/1":
		m.detailCalls.Add(1)
		writeJSON(w, `{"id":1,"slug":"yirgacheffe","name":"Yirgacheffe","nameAr":"يرغاتشيفي",
			"category":{"id":1,"slug":"filter","name":"Filter","nameAr":"فلتر"},
			"variants":[{"price":40,"discountPrice":35,"isDefault":true}],
			"images":[{"imagePath":"/uploads/yirgacheffe.jpg","isMain":true}]}`)
	case r.URL.Path == "/products/2":
		m.detailCalls.Add(1)
		writeJSON(w, `{"id":2,"slug":"huila","name":"Huila","mainImageUrl":"/uploads/missing.jpg",
			"variants":[{"price":22}]}`)
	case strings.HasPrefix(r.URL.Path, "/products/"):
		m.detailCalls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Product not found"}`))
	case r.URL.Path == "/categories":
		writeJSON(w, `[
			{"id":1,"slug":"filter","name":"Filter","nameAr":"فلتر","isDisplayedOnHomepage":true,"displayOrder":1,"imagePath":"/uploads/filter.jpg"},
			{"id":2,"slug":"espresso","name":"Espresso","isDisplayedOnHomepage":false,"displayOrder":0}
		]`)
	case r.URL.Path == "/uploads/yirgacheffe.jpg", r.URL.Path == "/uploads/filter.jpg":
		m.imageCalls.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xd9})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// URL returns the server URL.
func (m *MockCatalogServer) URL() string {
	return m.server.URL
}

// ListCalls reports how many times the product list was requested.
func (m *MockCatalogServer) ListCalls() int {
	return int(m.listCalls.Load())
}

// FailProducts makes the product list endpoint return 500.
func (m *MockCatalogServer) FailProducts(fail bool) {
	m.failProducts.Store(fail)
}

// Close shuts down the server.
func (m *MockCatalogServer) Close() {
	m.server.Close()
}
