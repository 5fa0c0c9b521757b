package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/dirk.krummacker/contact-intake/internal/config"
	"gitlab.com/dirk.krummacker/contact-intake/internal/database"
	"gitlab.com/dirk.krummacker/contact-intake/internal/filestore"
	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
	"gitlab.com/dirk.krummacker/contact-intake/internal/repository"
	"gitlab.com/dirk.krummacker/contact-intake/internal/service"
)

// Usage example on the command line:
// > PORT=3001 DBUSER=dirk DBPWD=bullo92 GIN_MODE=release GIN_LOGGING=OFF go run main.go
// > DBDRIVER=sqlite DBNAME=contacts.db go run main.go
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	sqlDB, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to open database", "driver", cfg.Database.Driver, "error", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(sqlDB, cfg.Database.Driver, logger); err != nil {
		logger.Fatal("failed to create contacts table", "error", err)
	}

	repo, err := repository.New(sqlDB, database.DriverName(cfg.Database.Driver))
	if err != nil {
		logger.Fatal("failed to prepare statements", "error", err)
	}
	defer repo.Close()

	files, err := filestore.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to initialize file store", "backend", cfg.Storage.Backend, "error", err)
	}

	svc := service.New(repo, files, logger, service.Options{
		MaxUploadBytes:   cfg.Storage.MaxUploadBytes(),
		CleanupOnFailure: cfg.Storage.CleanupOnFailure,
		RequestLogging:   cfg.HTTP.RequestLogging(),
		CORS:             cfg.CORS,
	})
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      svc.SetupHttpRouter(),
		ReadTimeout:  cfg.HTTP.ReadTimeoutDuration(),
		WriteTimeout: cfg.HTTP.WriteTimeoutDuration(),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "address", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "error", err)
		}
	case <-ctx.Done():
		logger.Info("received interruption signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeoutDuration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}
