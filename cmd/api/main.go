package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"production-tracker/internal/audit"
	"production-tracker/internal/auth"
	"production-tracker/internal/config"
	"production-tracker/internal/httpapi"
	"production-tracker/internal/metrics"
	"production-tracker/internal/pipeline"
	"production-tracker/internal/projects"
	"production-tracker/internal/ratelimit"
	"production-tracker/internal/rbac"
	"production-tracker/internal/refreshtokens"
	"production-tracker/internal/users"
	"production-tracker/pkg/logger"
	"production-tracker/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.Log.Level)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		rdb            *redis.Client
		health         *httpapi.Health
		generalLimiter ratelimit.Limiter
		authLimiter    ratelimit.Limiter
	)
	if cfg.RedisEnabled() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		generalLimiter = ratelimit.NewRedisLimiter(rdb, "rl", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		authLimiter = ratelimit.NewRedisLimiter(rdb, "rl", cfg.RateLimit.AuthMaxRequests, cfg.RateLimit.AuthWindow)
		health = httpapi.NewHealth(db, rdb)
	} else {
		log.Warn("REDIS_HOST not set, rate limits are per process")
		generalLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		authLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.AuthMaxRequests, cfg.RateLimit.AuthWindow)
		health = httpapi.NewHealth(db, nil)
	}

	m := metrics.New()
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		log.Error("metrics init failed", "err", err)
		os.Exit(1)
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	perms := rbac.DefaultTable()
	userRepo := users.NewPostgresRepository(db)
	auditSvc := audit.NewService(audit.NewLogRepo(log))

	authSvc := auth.NewService(auth.ServiceDeps{
		Users:   userRepo,
		Store:   refreshtokens.NewPostgresStore(db),
		Tokens:  tokens,
		Hasher:  auth.NewHasher(cfg.Auth.BcryptCost),
		Perms:   perms,
		Audit:   auditSvc,
		Metrics: m,
	})

	driver := pipeline.NewDriver(pipeline.Options{ExposeErrors: !cfg.IsProduction()})

	// Gin router
	r := gin.New()
	r.Use(driver.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		prefix: cfg.App.APIPrefix,
		driver: driver,
		handlers: httpapi.Handlers{
			Auth:     authSvc,
			Projects: projects.NewService(projects.NewPostgresStore(db), userRepo),
		},
		health:         health,
		verifier:       auth.NewVerifier(tokens, userRepo, perms, cfg.Auth.PermissionSource),
		gate:           rbac.NewGate(auditSvc, m),
		metrics:        m,
		generalLimiter: generalLimiter,
		authLimiter:    authLimiter,
		metricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "api_prefix", cfg.App.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	log.Info("shutdown complete")
}
