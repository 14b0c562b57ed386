package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/simp-lee/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/simp-lee/gamelib/internal/catalog"
	"github.com/simp-lee/gamelib/internal/config"
	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/events"
	"github.com/simp-lee/gamelib/internal/middleware"
	"github.com/simp-lee/gamelib/internal/module/auth"
	"github.com/simp-lee/gamelib/internal/module/collection"
	"github.com/simp-lee/gamelib/internal/module/search"
	"github.com/simp-lee/gamelib/internal/module/user"
	"github.com/simp-lee/gamelib/internal/workflow"
	"github.com/simp-lee/gamelib/web"
)

const defaultWriteTimeout = 60 * time.Second

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine    *gin.Engine
	db        *gorm.DB
	rdb       *redis.Client
	publisher events.Publisher
	tokens    *auth.TokenIssuer
	sessions  *search.Registry
	logger    *logger.Logger
	cfg       *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, writeTimeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// Services are the domain services shared by the HTTP server and the console client.
type Services struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Catalog    domain.SearchClient
	Publisher  events.Publisher
	Users      domain.UserRepository
	Tokens     *auth.TokenIssuer
	Auth       auth.Service
	Collection domain.CollectionService
}

// Close releases the connections held by s.
func (s *Services) Close(log *slog.Logger) {
	if s.Tokens != nil {
		s.Tokens.Close()
	}
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Error("event publisher close error", slog.Any("error", err))
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Error("redis close error", slog.Any("error", err))
		}
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error("database close error", slog.Any("error", err))
			} else {
				log.Info("database connection closed")
			}
		}
	}
}

// NewServices connects the database, the optional cache and event broker, and
// builds the repository → service chain.
func NewServices(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	s := &Services{}
	success := false
	defer func() {
		if !success {
			s.Close(log)
		}
	}()

	db, err := config.SetupDatabase(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	s.DB = db
	if err := config.Migrate(db); err != nil {
		return nil, err
	}
	log.Info("auto migration completed")

	var client domain.SearchClient = catalog.NewClient(catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		APIKey:  cfg.Catalog.APIKey,
		Timeout: config.Duration(cfg.Catalog.Timeout, 10*time.Second),
	}, log)
	if strings.TrimSpace(cfg.Catalog.APIKey) == "" {
		log.Warn("no catalog.api_key configured, catalog requests may be rejected")
	}
	if cfg.Cache.Enabled {
		rdb, err := config.SetupRedis(ctx, &cfg.Cache, log)
		if err != nil {
			return nil, fmt.Errorf("setup cache: %w", err)
		}
		s.Redis = rdb
		client = catalog.NewCachedClient(client, catalog.NewRedisCache(rdb), catalog.CacheConfig{
			TTL:     config.Duration(cfg.Cache.TTL, 10*time.Minute),
			Timeout: config.Duration(cfg.Catalog.Timeout, 10*time.Second),
			Prefix:  cfg.Cache.Prefix,
		}, log)
	}
	s.Catalog = client

	s.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		s.Publisher = events.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Queue, log)
		log.Info("event publishing enabled", slog.String("queue", cfg.Events.Queue))
	}

	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		if cfg.Server.Mode == gin.ReleaseMode {
			return nil, errors.New("auth.jwt_secret is required in release mode")
		}
		jwtSecret, err = randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		log.Warn("no auth.jwt_secret configured, using random secret in non-release mode (sessions end on restart)")
	}

	s.Users = user.NewUserRepository(db)
	s.Tokens, err = auth.NewTokenIssuer(jwtSecret, config.Duration(cfg.Auth.TokenExpiry, 24*time.Hour))
	if err != nil {
		return nil, err
	}
	s.Auth = auth.NewService(s.Tokens, s.Users)
	s.Collection = collection.NewCollectionService(collection.NewCollectionRepository(db), s.Publisher, log)

	success = true
	return s, nil
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, the shared services, the per-session search registry,
// middleware, template rendering, and routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	success := false

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior")
	}

	svcs, err := NewServices(context.Background(), cfg, log.Logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if !success {
			svcs.Close(log.Logger)
		}
	}()

	sessions := search.NewRegistry(func(s *auth.Session) *workflow.Workflow {
		return workflow.New(svcs.Catalog, svcs.Collection, s, log.Logger)
	}, config.Duration(cfg.Session.IdleTimeout, 30*time.Minute), log.Logger)

	cookie := auth.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Server.Mode == gin.ReleaseMode,
	}
	modules := []Module{
		auth.NewModule(auth.NewHandler(svcs.Auth), auth.NewPageHandler(svcs.Auth, cookie, log.Logger)),
		user.NewModule(user.NewUserHandler()),
		collection.NewModule(
			collection.NewCollectionHandler(svcs.Collection),
			collection.NewCollectionPageHandler(svcs.Collection, log.Logger),
		),
		search.NewModule(
			search.NewWorkflowHandler(sessions),
			search.NewGamesHandler(svcs.Catalog),
			search.NewSearchPageHandler(sessions),
		),
	}

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Session(cfg.Session.CookieName),
		middleware.Identity(middleware.IdentityConfig{
			Verifier:         svcs.Tokens,
			Users:            svcs.Users,
			CookieName:       cfg.Auth.CookieName,
			BearerOnlyPrefix: "/api/",
			Logger:           log.Logger,
		}),
		middleware.Logger(log.Logger),
	)

	var fsys fs.FS
	if cfg.Server.Mode == gin.DebugMode {
		fsys, err = resolveDebugWebFS()
		if err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	} else {
		fsys = web.EmbeddedFS
	}

	renderer, err := NewTemplateRenderer(fsys, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	csrfSecret := cfg.Server.CSRFSecret
	if isPlaceholderCSRFSecret(csrfSecret) {
		if cfg.Server.Mode == gin.ReleaseMode {
			return nil, errors.New("csrf_secret must be a non-placeholder value in release mode")
		}
		csrfSecret, err = randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate csrf secret: %w", err)
		}
		log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
	}

	health := map[string]HealthCheck{
		"database": func(ctx context.Context) error { return config.Ping(ctx, svcs.DB) },
	}
	if svcs.Redis != nil {
		health["cache"] = func(ctx context.Context) error { return svcs.Redis.Ping(ctx).Err() }
	}

	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:    modules,
		Health:     health,
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine:    engine,
		db:        svcs.DB,
		rdb:       svcs.Redis,
		publisher: svcs.Publisher,
		tokens:    svcs.Tokens,
		sessions:  sessions,
		logger:    log,
		cfg:       cfg,
	}, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func isPlaceholderCSRFSecret(secret string) bool {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return true
	}

	switch strings.ToLower(trimmed) {
	case "change-me-to-a-random-secret", "change-me-in-env":
		return true
	default:
		return false
	}
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

// Run starts the HTTP server and the session janitor and blocks until a
// shutdown signal is received or either of them fails. It shuts the server
// down gracefully with a 5-second timeout and then releases every connection.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, config.Duration(a.cfg.Server.Timeout, defaultWriteTimeout))

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if a.sessions != nil {
		g.Go(func() error { return a.sessions.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			log.Info("shutdown signal received")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
		return nil
	})

	runErr := g.Wait()

	(&Services{DB: a.db, Redis: a.rdb, Publisher: a.publisher, Tokens: a.tokens}).Close(log)

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}
