// @title Client Docs Portal API
// @version 1.0
// @description Gestión de clientes, pedidos de documentos, revisión, mensajes y links compartidos.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"client-docs-portal/internal/adapters/auth/gotrue"
	jwtauth "client-docs-portal/internal/adapters/auth/jwt"
	"client-docs-portal/internal/adapters/mail/resend"
	"client-docs-portal/internal/adapters/objectstore/supabase"
	redisbus "client-docs-portal/internal/adapters/realtime/redis"
	pg "client-docs-portal/internal/adapters/storage/postgres"
	"client-docs-portal/internal/config"
	"client-docs-portal/internal/platform/logger"
	"client-docs-portal/internal/platform/metrics"
	"client-docs-portal/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{App: "client-docs-portal"}).Error("config error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    "client-docs-portal",
	})
	if s, ok := log.(interface{ Sync() error }); ok {
		defer func() { _ = s.Sync() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, cleanup, err := buildOptions(ctx, cfg, log)
	if err != nil {
		log.Error("startup error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Sin WriteTimeout: los streams SSE quedan abiertos.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", map[string]any{"error": err.Error()})
	}
	log.Info("server stopped", nil)
}

// buildOptions arma los adapters según la config. Lo que no está configurado
// queda en nil y el router usa la versión en memoria.
func buildOptions(ctx context.Context, cfg config.Config, log logger.Logger) (router.Options, func(), error) {
	opts := router.Options{
		Logger:        log,
		Metrics:       metrics.New(),
		PublicBaseURL: cfg.PublicBaseURL,
		RateLimit:     router.RateLimit{PerSecond: cfg.RateLimit.PerSecond, Burst: cfg.RateLimit.Burst},
		TrustProxy:    cfg.TrustProxy,
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DB.DSN != "" {
		db, err := pg.Open(ctx, cfg.DB.DSN, pg.Pool{})
		if err != nil {
			return opts, func() {}, err
		}
		closers = append(closers, func() { _ = db.Close() })
		if cfg.AutoMigrate {
			if err := pg.Migrate(ctx, db); err != nil {
				cleanup()
				return opts, func() {}, err
			}
		}
		opts.DB = db
	} else {
		log.Warn("no database configured, using in-memory storage", nil)
	}

	if cfg.Redis.Addr != "" {
		bus, err := redisbus.New(ctx, redisbus.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   "cdp:",
			Logger:   log,
		})
		if err != nil {
			cleanup()
			return opts, func() {}, err
		}
		closers = append(closers, func() { _ = bus.Close() })
		opts.Bus = bus
	}

	var platform *gotrue.Client
	if cfg.Platform.URL != "" {
		c, err := gotrue.NewClient(gotrue.Config{
			BaseURL:    cfg.Platform.URL,
			AnonKey:    cfg.Platform.AnonKey,
			ServiceKey: cfg.Platform.ServiceKey,
			RedirectTo: cfg.PublicBaseURL,
			Timeout:    cfg.Platform.Timeout,
		})
		if err != nil {
			cleanup()
			return opts, func() {}, err
		}
		platform = c
		if cfg.Platform.ServiceKey != "" {
			opts.Identity = c
		}
	}

	switch {
	case cfg.Auth.JWTSecret != "":
		v, err := jwtauth.NewVerifier(cfg.Auth.JWTSecret, "authenticated")
		if err != nil {
			cleanup()
			return opts, func() {}, err
		}
		opts.AuthVerifier = v
	case platform != nil && cfg.Platform.AnonKey != "":
		opts.AuthVerifier = gotrue.NewVerifier(platform)
	default:
		log.Warn("no auth verifier configured, dev headers enabled", nil)
	}

	if cfg.Platform.URL != "" && cfg.Platform.ServiceKey != "" {
		st, err := supabase.New(supabase.Config{
			BaseURL:    cfg.Platform.URL,
			ServiceKey: cfg.Platform.ServiceKey,
			Bucket:     cfg.Storage.Bucket,
		})
		if err != nil {
			cleanup()
			return opts, func() {}, err
		}
		opts.Store = st
	}

	if cfg.Mail.ResendAPIKey != "" {
		m, err := resend.New(resend.Config{APIKey: cfg.Mail.ResendAPIKey, From: cfg.Mail.From})
		if err != nil {
			cleanup()
			return opts, func() {}, err
		}
		opts.Mailer = m
	}

	return opts, cleanup, nil
}
