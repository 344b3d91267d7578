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

	"golang.org/x/sync/errgroup"

	"github.com/claimlab/annotation-backend/internal/config"
	"github.com/claimlab/annotation-backend/internal/dataset"
	"github.com/claimlab/annotation-backend/internal/handlers"
	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/middleware"
	"github.com/claimlab/annotation-backend/internal/server"
	"github.com/claimlab/annotation-backend/internal/services"
	"github.com/claimlab/annotation-backend/internal/session"
	"github.com/claimlab/annotation-backend/internal/storage"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("Configuration invalid", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Storage init failed", "error", err)
	}

	// Startup diagnostics only; a failing check never blocks writes.
	for name, ok := range store.Status(ctx) {
		if ok {
			log.Info("Storage backend reachable", "backend", name)
		} else {
			log.Warn("Storage backend unreachable", "backend", name)
		}
	}

	catalog := dataset.NewCatalog(cfg.ShuffleSeed, cfg.DatasetLimit, log)
	registry := session.NewRegistry()
	annotationService := services.NewAnnotationService(cfg, catalog, store, registry, log)

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:       handlers.NewAuthHandler(log, annotationService),
		AnnotationHandler: handlers.NewAnnotationHandler(log, annotationService),
		ContentHandler:    handlers.NewContentHandler(log, annotationService),
		StorageHandler:    handlers.NewStorageHandler(log, annotationService),
		SessionMiddleware: middleware.NewSessionMiddleware(log, annotationService),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "port", cfg.Port, "storage", cfg.StorageType)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server failed", "error", err)
	}
	log.Info("Server stopped")
}

// buildStore assembles the configured primary backend plus the local
// fallback used by the one-shot write retry and degraded reads.
func buildStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage.Store, error) {
	local := storage.NewLocalBackend(cfg.DataDir, log)

	switch cfg.StorageType {
	case config.StorageLocal:
		return storage.NewStore(local, local, log), nil

	case config.StorageDatabase:
		var (
			db  *storage.DatabaseBackend
			err error
		)
		if cfg.PostgresHost != "" {
			gdb, openErr := storage.OpenPostgres(cfg.PostgresDSN())
			if openErr != nil {
				return nil, openErr
			}
			db, err = storage.NewDatabaseBackend(gdb, log)
		} else {
			gdb, openErr := storage.OpenSQLite(cfg.SQLitePath)
			if openErr != nil {
				return nil, openErr
			}
			db, err = storage.NewDatabaseBackend(gdb, log)
		}
		if err != nil {
			return nil, err
		}
		return storage.NewStore(db, local, log), nil

	case config.StorageBucket:
		bucket, err := storage.NewBucketBackend(ctx, cfg.BucketName, cfg.BucketFolder, cfg.CredentialsFile, log)
		if err != nil {
			return nil, err
		}
		return storage.NewStore(bucket, local, log), nil
	}
	return nil, &config.ConfigurationError{
		Setting:     "STORAGE_TYPE",
		Remediation: fmt.Sprintf("%q is not one of local, database, bucket", cfg.StorageType),
	}
}
