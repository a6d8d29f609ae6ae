package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/taskkart/backend/internal/auth"
	"github.com/taskkart/backend/internal/config"
	"github.com/taskkart/backend/internal/files"
	"github.com/taskkart/backend/internal/handlers"
	"github.com/taskkart/backend/internal/payout"
	"github.com/taskkart/backend/internal/repository"
	"github.com/taskkart/backend/internal/router"
	"github.com/taskkart/backend/internal/storagejob"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("Schema migrations failed", "error", err)
		os.Exit(1)
	}

	// River migrations (job queue tables)
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")

	fileStore, err := files.NewS3Store(files.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		slog.Error("Failed to init file store", "error", err)
		os.Exit(1)
	}

	// Background janitor for orphaned files
	workers := river.NewWorkers()
	river.AddWorker(workers, storagejob.NewDeleteFileWorker(fileStore, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	enqueueDelete := func(ctx context.Context, key string) error {
		_, err := riverClient.Insert(ctx, storagejob.DeleteFileArgs{Key: key}, nil)
		return err
	}

	// Repositories
	taskRepo := repository.NewTaskRepo(pool)
	subRepo := repository.NewSubmissionRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)
	txnRepo := repository.NewTransactionRepo(pool)

	// Services
	authSvc := auth.NewService(profileRepo, cfg.JWTSecret)
	payoutSvc := payout.NewService(pool, taskRepo, subRepo, profileRepo, txnRepo, logger)

	// Handlers
	apiRouter := router.New(router.Handlers{
		Auth: auth.NewHandler(authSvc, logger),
		Tasks: &handlers.TaskHandler{
			Tasks:         taskRepo,
			Payouts:       payoutSvc,
			Files:         fileStore,
			EnqueueDelete: enqueueDelete,
			Logger:        logger,
		},
		Submissions: &handlers.SubmissionHandler{
			Subs:   subRepo,
			Tasks:  taskRepo,
			Files:  fileStore,
			Logger: logger,
		},
		Wallet:  &handlers.WalletHandler{Profiles: profileRepo, Txns: txnRepo, Logger: logger},
		Profile: &handlers.ProfileHandler{Profiles: profileRepo, Logger: logger},
		Stats:   &handlers.StatsHandler{Tasks: taskRepo, Subs: subRepo, Txns: txnRepo, Logger: logger},
		Files:   &handlers.FileHandler{Files: fileStore, Logger: logger},
	}, authSvc)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (processes janitor jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
