// Package app initializes and runs the main application service.
// It configures logging, storage, authentication, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/t5krishn/tinyapp/internal/auth"
	"github.com/t5krishn/tinyapp/internal/config"
	"github.com/t5krishn/tinyapp/internal/db/jsondb"
	"github.com/t5krishn/tinyapp/internal/db/memorystorage"
	"github.com/t5krishn/tinyapp/internal/db/postgresdb"
	"github.com/t5krishn/tinyapp/internal/db/storage"
	"github.com/t5krishn/tinyapp/internal/flusher"
	"github.com/t5krishn/tinyapp/internal/hasher"
	"github.com/t5krishn/tinyapp/internal/idgen"
	"github.com/t5krishn/tinyapp/internal/ipchecker"
	"github.com/t5krishn/tinyapp/internal/logger"
	"github.com/t5krishn/tinyapp/internal/models"
	"github.com/t5krishn/tinyapp/internal/router"
	"github.com/t5krishn/tinyapp/internal/service"
)

// App encapsulates the configuration, HTTP handler, storage backend
// and background flusher needed to run the service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	flusher     *flusher.Flusher
	stopFlusher context.CancelFunc
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the background snapshot flusher
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	if err = logger.Init(app.cfg.LogLevel); err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	authCookieSigningSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.AuthCookieSigningSecretKey)
	if err != nil {
		return nil, err
	}

	app.flusher = flusher.New(app.db, app.cfg.SnapshotInterval, 1)
	flusherRunCtx, stopFlusher := context.WithCancel(context.Background())
	app.stopFlusher = stopFlusher

	app.flusher.Run(flusherRunCtx)
	app.flusher.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `app.flusher.ListenErrors()`:", zap.Error(err))
	})

	generator := idgen.New()

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		service.New(
			app.db,
			generator,
			hasher.New(),
			app.cfg.ShortURLBase,
		),
		auth.New(
			app.db,
			generator,
			app.cfg.AuthCookieName,
			authCookieSigningSecretKey,
		),
		ipChecker,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		a.stopFlusher()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
