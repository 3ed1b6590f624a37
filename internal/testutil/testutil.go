package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/videotube-backend/internal/api"
	"github.com/dom/videotube-backend/internal/config"
	"github.com/dom/videotube-backend/internal/media"
	"github.com/dom/videotube-backend/internal/metrics"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/dom/videotube-backend/internal/repository/memory"
	repoPostgres "github.com/dom/videotube-backend/internal/repository/postgres"
	"github.com/dom/videotube-backend/internal/service"
	"github.com/dom/videotube-backend/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated
// connection. It skips under -short since it needs a container runtime.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres-backed test in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_videotube"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(func() {
		testDB.Cleanup()
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	testDB.DSN = dsn

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	testDB.DB = db

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"subscriptions", "videos", "users"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing. Media goes to
// mediaDir through the disk driver.
func TestConfig(mediaDir string) *config.Config {
	return &config.Config{
		Port:               "0",
		Environment:        "test",
		CORSOrigin:         "http://localhost:3000",
		StoreDriver:        config.StoreDriverMemory,
		AccessTokenSecret:  "test-access-secret-for-testing-only",
		RefreshTokenSecret: "test-refresh-secret-for-testing-only",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		CookieSecure:       true,
		BcryptCost:         bcrypt.MinCost,
		MediaDriver:        config.MediaDriverDisk,
		MediaDir:           mediaDir,
		MediaPublicURL:     "http://localhost/media",
		MaxUploadBytes:     2 << 20,
		AvatarMaxWidth:     256,
		AuthRatePerMinute:  600,
		AuthRateBurst:      100,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Metrics  *metrics.Collector
	Config   *config.Config
}

// NewTestServer creates a complete test server on the in-memory store.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	cfg := TestConfig(t.TempDir())
	return newTestServer(t, cfg, memory.NewRepositories(memory.NewStore()), nil)
}

// NewTestServerWithConfig is NewTestServer with cfg adjusted by mutate first.
func NewTestServerWithConfig(t *testing.T, mutate func(cfg *config.Config)) *TestServer {
	t.Helper()
	cfg := TestConfig(t.TempDir())
	mutate(cfg)
	return newTestServer(t, cfg, memory.NewRepositories(memory.NewStore()), nil)
}

// NewPostgresTestServer creates a complete test server backed by a
// PostgreSQL testcontainer.
func NewPostgresTestServer(t *testing.T) *TestServer {
	t.Helper()
	testDB := NewTestDB(t)
	cfg := TestConfig(t.TempDir())
	cfg.StoreDriver = config.StoreDriverPostgres
	cfg.DatabaseURL = testDB.DSN
	return newTestServer(t, cfg, repoPostgres.NewRepositories(testDB.DB), testDB)
}

func newTestServer(t *testing.T, cfg *config.Config, repos *repository.Repositories, testDB *TestDB) *TestServer {
	t.Helper()

	uploader, err := media.NewDiskUploader(cfg.MediaDir, cfg.MediaPublicURL)
	if err != nil {
		t.Fatalf("failed to create uploader: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	collector := metrics.NewCollector()
	collector.TrackSessionSockets(hub.Connections)

	services, err := service.NewServices(repos, uploader, hub, collector, cfg)
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}

	server := httptest.NewServer(api.NewRouter(services, hub, collector, cfg))

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return &TestServer{
		Server:   server,
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Hub:      hub,
		Metrics:  collector,
		Config:   cfg,
	}
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full URL of a /api/v1/users route.
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1/users%s", ts.Server.URL, path)
}

// WebSocketURL returns the session events socket URL.
func (ts *TestServer) WebSocketURL() string {
	return "ws" + ts.Server.URL[len("http"):] + "/api/v1/users/sessions/ws"
}
