// Package runtime wires the catalog's dependencies together and manages the
// process lifecycle: config, logger, stores, object storage, services, the
// request pipeline, and the HTTP server.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/shelfworks/catalog-service/internal/api/httpserver"
	"github.com/shelfworks/catalog-service/internal/app/httpapi"
	"github.com/shelfworks/catalog-service/internal/app/services/accounts"
	bookssvc "github.com/shelfworks/catalog-service/internal/app/services/books"
	ratingssvc "github.com/shelfworks/catalog-service/internal/app/services/ratings"
	"github.com/shelfworks/catalog-service/internal/app/storage"
	"github.com/shelfworks/catalog-service/internal/app/storage/memory"
	"github.com/shelfworks/catalog-service/internal/app/storage/postgres"
	"github.com/shelfworks/catalog-service/internal/auth"
	"github.com/shelfworks/catalog-service/internal/cache"
	"github.com/shelfworks/catalog-service/internal/config"
	"github.com/shelfworks/catalog-service/internal/httputil"
	"github.com/shelfworks/catalog-service/internal/metrics"
	"github.com/shelfworks/catalog-service/internal/middleware"
	"github.com/shelfworks/catalog-service/internal/objectstore"
	"github.com/shelfworks/catalog-service/internal/pipeline"
	"github.com/shelfworks/catalog-service/internal/platform/migrations"
	"github.com/shelfworks/catalog-service/pkg/logger"
)

// Application holds the wired process and its closable resources.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *httpserver.Server
	handler    http.Handler
	db         *sqlx.DB
	cache      *cache.Cache
}

type stores struct {
	users storage.UserStore
	books storage.BookStore
}

// NewApplication constructs a fully wired application from the environment.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New("catalog", logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	st, db, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	objects, err := buildObjectStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure object storage: %w", err)
	}

	cacheClient := cache.New(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.TTL, log)
	if cacheClient != nil {
		log.WithField("addr", cfg.Cache.Addr).Info("Cache enabled")
	}

	authorizer, err := auth.NewAuthorizer(cfg.Auth.SigningKey, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("configure authorizer: %w", err)
	}

	accountsSvc := accounts.New(st.users, authorizer, log)
	booksSvc := bookssvc.New(st.books, objects, cacheClient, log)
	ratingsSvc := ratingssvc.New(st.books, st.users, cacheClient, log)

	m := metrics.New("catalog")
	router := mux.NewRouter()
	router.Use(
		middleware.LoggingMiddleware(log),
		middleware.MetricsMiddleware(m),
	)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	rateLimiter.StartCleanup(time.Minute)
	router.Use(rateLimiter.Handler)

	// Operational endpoints stay outside the pipeline: they are not part of
	// the JSON API surface and skip CORS and auth.
	router.HandleFunc("/healthz", healthHandler(db, cacheClient)).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	verify := func(token string) (*pipeline.Identity, error) {
		claims, err := authorizer.Verify(token)
		if err != nil {
			return nil, err
		}
		identity := &pipeline.Identity{SubjectID: claims.UserID}
		if claims.IssuedAt != nil {
			identity.IssuedAt = claims.IssuedAt.Time
		}
		if claims.ExpiresAt != nil {
			identity.ExpiresAt = claims.ExpiresAt.Time
		}
		return identity, nil
	}

	builder := pipeline.NewBuilder(router, cfg.CORSOrigins, verify, log)
	httpapi.New(accountsSvc, booksSvc, ratingsSvc, log).Register(builder)

	return &Application{
		cfg:        cfg,
		log:        log,
		httpServer: httpserver.New(cfg.Server, log, router),
		handler:    router,
		db:         db,
		cache:      cacheClient,
	}, nil
}

// Handler exposes the root handler, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.log.WithField("addr", a.httpServer.Addr()).Info("HTTP server listening")
		if err := a.httpServer.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown drains the HTTP server and closes the database and cache.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("Error closing database connection")
		}
	}
	if err := a.cache.Close(); err != nil {
		a.log.WithError(err).Warn("Error closing cache connection")
	}
	return nil
}

// buildStores opens postgres when a DSN is configured, otherwise falls back
// to the in-memory store.
func buildStores(cfg *config.Config, log *logger.Logger) (stores, *sqlx.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("DATABASE_DSN not set; using in-memory storage")
		mem := memory.New()
		return stores{users: mem, books: mem}, nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return stores{}, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrations.Apply(ctx, db.DB); err != nil {
		db.Close()
		return stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	pg := postgres.New(db)
	return stores{users: pg, books: pg}, db, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// buildObjectStore connects to S3-compatible storage when credentials are
// configured, otherwise keeps images in process memory.
func buildObjectStore(cfg *config.Config, log *logger.Logger) (objectstore.Store, error) {
	if cfg.ObjectStore.AccessKey == "" {
		log.Warn("S3_ACCESS_KEY not set; storing images in memory")
		return objectstore.NewMemory(), nil
	}

	s3Store, err := objectstore.NewS3Store(objectstore.Config{
		Endpoint:  cfg.ObjectStore.Endpoint,
		Region:    cfg.ObjectStore.Region,
		Bucket:    cfg.ObjectStore.Bucket,
		AccessKey: cfg.ObjectStore.AccessKey,
		SecretKey: cfg.ObjectStore.SecretKey,
		URLExpiry: cfg.ObjectStore.URLExpiry,
	}, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3Store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3Store, nil
}

func healthHandler(db *sqlx.DB, c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if err := c.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["cache"] = err.Error()
			code = http.StatusServiceUnavailable
		}

		httputil.WriteJSON(w, code, status)
	}
}
