package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/adapter/equran"
	"github.com/escalopa/tajweed-bot/internal/adapter/gemini"
	"github.com/escalopa/tajweed-bot/internal/adapter/i18n"
	"github.com/escalopa/tajweed-bot/internal/adapter/postgres"
	"github.com/escalopa/tajweed-bot/internal/adapter/redis"
	"github.com/escalopa/tajweed-bot/internal/adapter/telegram"
	"github.com/escalopa/tajweed-bot/internal/adapter/whisper"
	"github.com/escalopa/tajweed-bot/internal/application"
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
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath, config.TargetBot)
	if err != nil {
		return err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	lg.Info("configuration loaded", zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize i18n
	i18nService, err := i18n.NewI18n(cfg.App.LocalesDir, domain.Language(cfg.App.DefaultLanguage))
	if err != nil {
		return err
	}
	lg.Info("i18n initialized")

	// Initialize Redis FSM and corpus cache
	redisClient, err := redis.Connect(ctx, cfg.Redis.URI)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	fsm := redis.NewFSM(redisClient)

	var corpus domain.CorpusPort = equran.NewClient(cfg.Corpus.BaseURL, cfg.Corpus.Timeout)
	if cfg.Redis.CacheTTL > 0 {
		corpus = redis.NewCorpusCache(redisClient, corpus, cfg.Redis.CacheTTL, lg.Named("corpus_cache"))
	}
	lg.Info("redis connected")

	// Initialize progress store
	pool, err := postgres.NewPool(ctx, cfg.Database.URL, postgres.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}
	progress := postgres.NewProgressRepository(pool)
	lg.Info("postgres connected")

	transcriber, err := whisper.NewTranscriber(whisper.Config{
		APIKey:   cfg.Whisper.APIKey,
		BaseURL:  cfg.Whisper.BaseURL,
		Model:    cfg.Whisper.Model,
		Language: cfg.Whisper.Language,
	})
	if err != nil {
		return err
	}

	// The explainer stays a nil interface when disabled
	var explainer domain.ExplainerPort
	if cfg.Gemini.Enabled() {
		ex, err := gemini.NewExplainer(ctx, gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			BaseURL:     cfg.Gemini.BaseURL,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
		})
		if err != nil {
			return err
		}
		explainer = ex
		lg.Info("explainer enabled", zap.String("model", cfg.Gemini.Model))
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

	// Initialize application service
	botService := application.NewBotService(
		catalog,
		lesson.Default(),
		generator,
		corpus,
		fsm,
		transcriber,
		progress,
		explainer,
		domain.Language(cfg.App.DefaultLanguage),
		lg.Named("service"),
	)

	// Initialize Telegram bot
	bot, err := telegram.NewBot(cfg.Telegram.Token, botService, catalog, i18nService, lg.Named("telegram"))
	if err != nil {
		return err
	}

	// Start bot in a goroutine
	errChan := make(chan error, 1)
	go func() {
		lg.Info("starting bot")
		errChan <- bot.Start(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		lg.Info("received shutdown signal, stopping bot")
		if err := bot.Stop(); err != nil {
			lg.Error("failed to stop bot", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			lg.Error("bot stopped with error", zap.Error(err))
			return err
		}
	}

	lg.Info("bot stopped")
	return nil
}
