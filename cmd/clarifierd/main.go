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

	"github.com/solo-energia/bill-clarifier/internal/chat"
	"github.com/solo-energia/bill-clarifier/internal/common"
	"github.com/solo-energia/bill-clarifier/internal/export"
	"github.com/solo-energia/bill-clarifier/internal/extract"
	"github.com/solo-energia/bill-clarifier/internal/llm"
	"github.com/solo-energia/bill-clarifier/internal/metrics"
	"github.com/solo-energia/bill-clarifier/internal/narrative"
	"github.com/solo-energia/bill-clarifier/internal/pipeline"
	"github.com/solo-energia/bill-clarifier/internal/repository"
	"github.com/solo-energia/bill-clarifier/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	analyses := repository.NewAnalysisRepository(pool, logger)
	properties := repository.NewPropertyRepository(pool, logger)

	chatClient := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	extractor := extract.NewExtractor(chatClient, cfg.LLM.ExtractionModel, cfg.LLM.MaxTokens, logger)
	narrator := narrative.NewNarrator(chatClient, cfg.LLM.NarrativeModel, cfg.LLM.NarrativeTemperature, cfg.LLM.MaxTokens, logger)
	sizing := metrics.Sizing{
		MonthlyYieldPerKwp: cfg.Solar.MonthlyYieldPerKwp,
		ModuleWatts:        cfg.Solar.ModuleWatts,
	}

	pipe := pipeline.New(extractor, narrator, analyses, properties, sizing, cfg.LLM.ExtractionDeadline, logger)
	chatSvc := chat.NewService(analyses, chatClient, cfg.LLM.NarrativeModel, logger)
	exportSvc := export.NewService(analyses, logger)

	srv := server.New(pipe, analyses, properties, chatSvc, exportSvc, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	// Let handed-off background runs write their terminal state.
	pipe.Wait()
	logger.Info("shutdown complete")
}
