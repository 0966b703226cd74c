// Package main provides the catalog automation server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/automation"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/config"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/llm"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/metrics"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/notify"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/server"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/store"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from the store on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	slog.Info("starting mercado-server", "port", cfg.ServerPort, "provider", cfg.LLMProvider)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	storeClient, err := store.NewClient(ctx, store.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	cancel()
	if err != nil {
		slog.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := storeClient.Close(context.Background()); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	if err := storeClient.InitSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("MERCADO_WIPE_DB") == "true" {
		if err := storeClient.WipeData(ctx); err != nil {
			cancel()
			slog.Error("failed to wipe store", "error", err)
			os.Exit(1)
		}
	}
	cancel()

	classifier, err := llm.NewClassifier(cfg)
	if err != nil {
		slog.Error("failed to create classifier", "error", err)
		os.Exit(1)
	}
	caller := llm.NewCaller(classifier, logger)

	hub := notify.NewHub(logger)
	usage := metrics.NewUsageCollector(storeClient, hub, logger)

	svc := automation.NewService(storeClient, caller, usage, hub, logger, automation.Options{
		BatchSize:          cfg.BatchSize,
		MaxParallelBatches: cfg.MaxParallelBatches,
		ItemWorkers:        cfg.ItemWorkers,
		FallbackPolicy:     cfg.FallbackPolicy,
		ResidualCategoryID: cfg.ResidualCategoryID,
	})

	srv := server.New(svc, hub, usage, storeClient, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(runCtx, cfg.ServerPort); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
