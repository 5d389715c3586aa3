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

	"telecom-rating/internal/audit"
	"telecom-rating/internal/auth"
	"telecom-rating/internal/config"
	"telecom-rating/internal/httpapi"
	"telecom-rating/internal/migration"
	"telecom-rating/internal/rating"
	"telecom-rating/pkg/logger"
	"telecom-rating/pkg/metrics"
	"telecom-rating/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
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

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := migration.RunMigrations(db); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	lookupCap, err := utils.NewConcurrencyCap(rdb, "rating:lookup:", cfg.Rating.LookupConcurrency, cfg.Rating.LookupCapTTL)
	if err != nil {
		log.Error("lookup cap init failed", "err", err)
		os.Exit(1)
	}

	lookupMetrics, err := metrics.NewLookup(prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("metrics init failed", "err", err)
		os.Exit(1)
	}

	repo := rating.NewPostgresRepo(db)
	opts := rating.Options{
		Changes:  audit.RatingRecorder{Audit: audit.NewService(audit.NewPostgresRepo(db))},
		Logger:   log,
		Limits:   rating.PageLimits{DefaultPageSize: cfg.Rating.DefaultPageSize, MaxPageSize: cfg.Rating.MaxPageSize},
		Observer: lookupMetrics,
	}
	h := httpapi.Handlers{
		Tariffs: rating.NewTariffService(repo, opts),
		Rates:   rating.NewRateService(repo, opts),
		Groups:  rating.NewGroupService(repo, opts),
		Lookup:  rating.NewLookupService(repo, opts),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, routeDeps{
		authMW:    auth.RequireAccessToken(authManager),
		lookupCap: lookupCap,
		health: map[string]httpapi.Check{
			"postgres": func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) },
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
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
}
