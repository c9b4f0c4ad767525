// Package main is the entrypoint for the gatherd server.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gatherkit/gatherd/internal/cache"
	"github.com/gatherkit/gatherd/internal/config"
	"github.com/gatherkit/gatherd/internal/identity"
	"github.com/gatherkit/gatherd/internal/lifecycle"
	"github.com/gatherkit/gatherd/internal/logutil"
	"github.com/gatherkit/gatherd/internal/notify"
	"github.com/gatherkit/gatherd/internal/ratelimit"
	"github.com/gatherkit/gatherd/internal/server"
	"github.com/gatherkit/gatherd/internal/store"
	"github.com/gatherkit/gatherd/internal/web"

	// Register store drivers
	_ "github.com/gatherkit/gatherd/internal/store/memory"
	_ "github.com/gatherkit/gatherd/internal/store/sqlite"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	publicOrigin := flag.String("public-origin", "", "Public origin, scheme://host[:port] (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: memory or sqlite (overrides config)")
	notifyDriver := flag.String("notify-driver", "", "Notify driver: log or smtp (overrides config)")
	tlsMode := flag.String("tls-mode", "", "TLS mode: off, static, selfsigned, or acme (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	// Load .env if present; real environment wins over file values.
	_ = godotenv.Load()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := logutil.New("info")

	// Load config with precedence: defaults -> TOML file -> env -> CLI flags
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:   listenAddr,
			PublicOrigin: publicOrigin,
			StoreDriver:  storeDriver,
			NotifyDriver: notifyDriver,
			TLSMode:      tlsMode,
			LogLevel:     logLevel,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logutil.New(cfg.Logging.Level)
	slog.SetDefault(logger)

	// Log effective config with secrets redacted
	logger.Info("effective configuration", "config", cfg.Redacted())

	// Without a configured secret, sessions do not survive restarts.
	jwtSecret := []byte(cfg.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		jwtSecret = make([]byte, 32)
		if _, err := rand.Read(jwtSecret); err != nil {
			logger.Error("failed to generate session secret", "error", err)
			os.Exit(1)
		}
		logger.Warn("auth.jwt_secret not set, using ephemeral per-process secret")
	}

	// Create store driver
	driver, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
	})
	if err != nil {
		logger.Error("failed to create store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	if err := driver.Init(context.Background()); err != nil {
		logger.Error("failed to initialize store", "driver", driver.Name(), "error", err)
		os.Exit(1)
	}
	logger.Info("store ready", "driver", driver.Name())

	// Create notifier
	var notifier notify.Notifier
	switch cfg.Notify.Driver {
	case "", "log":
		notifier = notify.NewLogNotifier(logger)
	case "smtp":
		smtpNotifier, err := notify.NewSMTPNotifier(cfg.Notify.From, cfg.Notify.Drivers["smtp"])
		if err != nil {
			logger.Error("failed to configure smtp notifier", "error", err)
			os.Exit(1)
		}
		notifier = smtpNotifier
	default:
		logger.Error("unknown notify driver", "driver", cfg.Notify.Driver)
		os.Exit(1)
	}

	// Assemble the API handler
	svc := lifecycle.NewService(driver.Users(), driver.Events(), driver.Invites(), notifier, cfg.PublicOrigin, logger)
	handler := web.NewHandler(web.Options{
		Store:     driver,
		Lifecycle: svc,
		Hasher:    identity.NewPasswordHasher(),
		Tokens:    identity.NewTokenIssuer(jwtSecret, cfg.Auth.TokenTTL.Std()),
		Notifier:  notifier,
		Origin:    cfg.PublicOrigin,
		Logger:    logger,
	})

	// Rate limit unauthenticated endpoints when configured
	var limit func(http.Handler) http.Handler
	var counters *cache.Cache
	if cfg.RateLimit.RequestsPerWindow > 0 {
		counters = cache.New(cfg.RateLimit.Window.Std(), time.Minute)
		limiter := ratelimit.New(counters, &ratelimit.Config{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            cfg.RateLimit.Window.Std(),
			KeyPrefix:         "ratelimit:",
		})
		limit = limiter.Middleware
	}

	srv := server.New(cfg, handler.Routes(limit), logger)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started, press Ctrl+C to stop")

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if counters != nil {
		_ = counters.Close()
	}
	if err := driver.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("server stopped")
}
