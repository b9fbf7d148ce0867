package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/adapter/equran"
	"github.com/escalopa/tajweed-bot/internal/adapter/httpapi"
	"github.com/escalopa/tajweed-bot/internal/adapter/redis"
	"github.com/escalopa/tajweed-bot/internal/adapter/whisper"
	"github.com/escalopa/tajweed-bot/internal/config"
	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/lesson"
	"github.com/escalopa/tajweed-bot/internal/logger"
	"github.com/escalopa/tajweed-bot/internal/tajweed"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath, config.TargetAPI)
	if err != nil {
		return err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var corpus domain.CorpusPort = equran.NewClient(cfg.Corpus.BaseURL, cfg.Corpus.Timeout)

	// Redis is optional here, it only caches the corpus
	if cfg.Redis.URI != "" && cfg.Redis.CacheTTL > 0 {
		client, err := redis.Connect(ctx, cfg.Redis.URI)
		if err != nil {
			return err
		}
		defer client.Close()

		corpus = redis.NewCorpusCache(client, corpus, cfg.Redis.CacheTTL, lg.Named("corpus_cache"))
		lg.Info("corpus cache enabled", zap.Duration("ttl", cfg.Redis.CacheTTL))
	}

	transcriber, err := whisper.NewTranscriber(whisper.Config{
		APIKey:   cfg.Whisper.APIKey,
		BaseURL:  cfg.Whisper.BaseURL,
		Model:    cfg.Whisper.Model,
		Language: cfg.Whisper.Language,
	})
	if err != nil {
		return err
	}

	catalog := tajweed.Default()
	generator, err := tajweed.NewGenerator(catalog, corpus,
		tajweed.WithSurahs(cfg.Practice.Surahs),
		tajweed.WithMaxAttempts(cfg.Practice.MaxAttempts),
		tajweed.WithMaxDraws(cfg.Practice.MaxDraws),
	)
	if err != nil {
		return err
	}

	handler := httpapi.NewHandler(catalog, lesson.Default(), generator, transcriber, lg.Named("http"))
	server := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewRouter(handler, cfg.HTTP.AllowedOrigins), lg.Named("http"))

	if err := server.Run(ctx); err != nil {
		lg.Error("http server stopped with error", zap.Error(err))
		return err
	}

	lg.Info("http server stopped")
	return nil
}
