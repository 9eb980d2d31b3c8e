package app

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/config"
)

// Run is the main entry point for the application
func Run() error {
	_ = godotenv.Load()

	routesFile := flag.String("routes", "", "routing definition file, overrides ROUTES_FILE")
	flag.Parse()

	logging.InitGlobalLogger()
	defer logging.MustSync()
	logger := logging.GetGlobalLogger().WithFields(logging.Component("app"))

	cfg := config.Load()
	if *routesFile != "" {
		cfg.RoutesFile = *routesFile
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", err)
		return err
	}

	logger.Info("Starting outbound router",
		logging.String("port", cfg.Port),
		logging.String("routes_file", cfg.RoutesFile),
	)

	app, err := New(cfg)
	if err != nil {
		logger.Error("Failed to initialize application", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		logger.Error("Failed to start routers", err)
		_ = app.Shutdown(context.Background())
		return err
	}

	srv, _ := app.NewServer()
	errCh, err := srv.Start()
	if err != nil {
		logger.Error("Server failed to start", err)
		_ = app.Shutdown(context.Background())
		return err
	}
	logger.Info("Server listening", logging.String("addr", srv.Addr()))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case serveErr = <-errCh:
		logger.Error("Server stopped unexpectedly", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Error during app shutdown", logging.Err(err))
	}

	logger.Info("Server exited")
	return serveErr
}
