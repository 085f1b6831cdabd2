package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Cepat-Kilat-Teknologi/device-heartbeat/internal/devicecache"
)

// newHTTPServer builds the HTTP server (package-level variable for testing)
var newHTTPServer = func(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serverShutdown gracefully stops server (package-level variable for testing)
var serverShutdown = func(ctx context.Context, server *http.Server) error {
	return server.Shutdown(ctx)
}

// newDeviceCache builds the device cache described by cfg
func newDeviceCache(cfg *Config) (*devicecache.Cache, error) {
	store, err := devicecache.NewStore(devicecache.Backend(cfg.Cache.Backend))
	if err != nil {
		return nil, err
	}
	return devicecache.New(
		devicecache.WithStore(store),
		devicecache.WithLogger(logger.Named("devicecache")),
		devicecache.WithActiveWindow(time.Duration(cfg.Cache.ActiveWindowSeconds)*time.Second),
	), nil
}

// newCacheJanitor builds the janitor evicting entries older than the
// configured maximum age
func newCacheJanitor(cfg *Config, cache *devicecache.Cache) (*devicecache.Janitor, error) {
	strategy, err := devicecache.ParseStrategy(cfg.Cache.JanitorStrategy)
	if err != nil {
		return nil, err
	}
	j, err := devicecache.NewJanitor(cache,
		time.Duration(cfg.Cache.CleanupIntervalSeconds)*time.Second,
		time.Duration(cfg.Cache.MaxAgeSeconds)*time.Second,
		strategy, logger.Named("janitor"))
	if err != nil {
		return nil, fmt.Errorf("create cache janitor: %w", err)
	}
	return j, nil
}

func runServer(cfg *Config) error {
	// Open database connection when enabled
	var db database
	if cfg.Database.Enabled {
		var err error
		db, err = openDatabase(cfg)
		if err != nil {
			return err
		}
		defer safeClose(db)
	}
	logger.Info("Database", zap.Bool("enabled", cfg.Database.Enabled),
		zap.Bool("persist_heartbeats", cfg.Database.PersistHeartbeats))

	// Build device cache and start janitor
	cache, err := newDeviceCache(cfg)
	if err != nil {
		return err
	}
	janitor, err := newCacheJanitor(cfg, cache)
	if err != nil {
		return err
	}
	if err := janitor.Start(); err != nil {
		return err
	}
	defer func() { _ = janitor.Stop() }()

	// Create app and start CPU sampling
	a := newApp(cfg, cache, db)
	a.cpu.Start()
	defer a.cpu.Stop()

	// Start persistence workers
	if db != nil && cfg.Database.PersistHeartbeats {
		a.persister = newWorkerPool(cfg.Server.WorkerCount, cfg.Server.QueueSize, PersistTaskTimeout,
			func(ctx context.Context, rec heartbeatRecord) error {
				return insertHeartbeat(ctx, db, a.monitor, rec)
			})
		a.persister.Start()
		defer a.persister.Stop()
	}

	// Setup rate limiting
	rateLimitWindow := time.Duration(cfg.Server.RateLimitWindowSeconds) * time.Second
	logger.Info("Rate limiting configured",
		zap.Int("requests", cfg.Server.RateLimitRequests),
		zap.Duration("window", rateLimitWindow))
	rl := newRateLimiter(cfg.Server.RateLimitRequests, rateLimitWindow)
	rl.StartCleanup()
	defer rl.StopCleanup()

	// Setup auth attempt tracking
	tracker := newAuthAttemptTracker()
	tracker.StartCleanup()
	defer tracker.StopCleanup()
	logger.Info("Middleware authentication", zap.Bool("enabled", cfg.Server.MiddlewareAuth))

	server := newHTTPServer(cfg.BindAddress(), newRouter(a, rl, tracker))

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			zap.String("address", server.Addr),
			zap.String("instance_id", a.instanceID))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
		logger.Info("Shutdown signal received, starting graceful shutdown...")

		// Graceful shutdown with timeout
		timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := serverShutdown(ctx, server); err != nil {
			return err
		}

		logger.Info("Server exited properly", zap.Int("devices_cached", cache.Len()))
		return nil
	}
}
