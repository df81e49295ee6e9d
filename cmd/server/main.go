package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/codebuildervaibhav/audio-summarizer/internal/cleanup"
	"github.com/codebuildervaibhav/audio-summarizer/internal/config"
	"github.com/codebuildervaibhav/audio-summarizer/internal/fetcher"
	"github.com/codebuildervaibhav/audio-summarizer/internal/handlers"
	"github.com/codebuildervaibhav/audio-summarizer/internal/logger"
	"github.com/codebuildervaibhav/audio-summarizer/internal/metrics"
	"github.com/codebuildervaibhav/audio-summarizer/internal/pipeline"
	"github.com/codebuildervaibhav/audio-summarizer/internal/ratelimit"
	"github.com/codebuildervaibhav/audio-summarizer/internal/storage"
	"github.com/codebuildervaibhav/audio-summarizer/internal/summarization"
	"github.com/codebuildervaibhav/audio-summarizer/internal/tasks"
	"github.com/codebuildervaibhav/audio-summarizer/internal/transcription"
	"github.com/codebuildervaibhav/audio-summarizer/internal/watcher"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		logger.New("info", "").WithError(err).Fatal("Invalid configuration")
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Environment)
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cleanup.EnsureDir(cfg.Storage.TempDir); err != nil {
		log.WithError(err).Fatal("Failed to create temp directory")
	}
	if err := cleanup.EnsureDir(cfg.Storage.OutputDir); err != nil {
		log.WithError(err).Fatal("Failed to create output directory")
	}

	log.Info("Initializing components...")

	transcriber := transcription.NewWhisperClient(transcription.WhisperConfig{
		APIKey:  cfg.Transcription.APIKey,
		BaseURL: cfg.Transcription.BaseURL,
		Model:   cfg.Transcription.Model,
	})

	summarizer, err := newSummarizer(ctx, cfg.Summarizer)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize summarizer")
	}
	active := cfg.Summarizer.Active()
	log.WithField("provider", summarizer.Name()).WithField("model", active.Model).Info("Summarizer ready")

	deps := pipeline.Dependencies{
		Store:             tasks.NewStore(),
		Transcriber:       transcriber,
		TranscribeLimiter: ratelimit.NewLimiter(transcriber.Name(), ratelimit.Budget{RPM: cfg.Transcription.RPM}, log.Entry),
		Summarizer:        summarizer,
		SummarizeLimiter:  ratelimit.NewLimiter(summarizer.Name(), ratelimit.Budget{RPM: active.RPM, TPM: active.TPM}, log.Entry),
		Templates:         summarization.DefaultTemplates(),
		Storage:           storage.NewLocalStorage(cfg.Storage.OutputDir),
		Logger:            log.Entry,
	}

	if cfg.Fetcher.Enabled {
		deps.Fetcher = fetcher.NewYTDLP(cfg.Fetcher.Binary, cfg.Fetcher.AudioFormat, cfg.Fetcher.Timeout)
		if cfg.Fetcher.ResolveTitle {
			deps.Titles = fetcher.NewTitleResolver(30 * time.Second)
		}
	}

	var history *storage.HistoryDB
	if cfg.Storage.Database != "" {
		history, err = storage.NewHistoryDB(cfg.Storage.Database)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize database")
		}
		defer history.Close()
		deps.History = history
	}

	if cfg.GoogleDrive.CredentialsFile != "" {
		drive, err := storage.NewDriveClient(ctx, cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, cfg.GoogleDrive.FolderName)
		if err != nil {
			log.WithError(err).Warn("Google Drive not available, summaries will only be saved locally")
		} else {
			log.Info("Google Drive integration enabled")
			deps.Mirror = drive
		}
	}

	orchestrator, err := pipeline.New(deps, pipeline.Options{
		TempDir:             cfg.Storage.TempDir,
		Language:            cfg.Pipeline.Language,
		ChunkSize:           cfg.Pipeline.ChunkSize,
		SingleCallThreshold: cfg.Pipeline.SingleCallThreshold,
		MaxAttempts:         cfg.Summarizer.MaxAttempts,
		InitialDelay:        cfg.Summarizer.InitialDelay,
		TranscribeTimeout:   cfg.Transcription.Timeout,
		SummarizeTimeout:    cfg.Summarizer.Timeout,
		MaxFileSize:         cfg.Limits.MaxFileSize(),
		AllowedExtensions:   cfg.Limits.AllowedExtensions,
		AllowedContentTypes: cfg.Limits.AllowedContentTypes,
		Workers:             cfg.Pipeline.Workers,
		QueueSize:           cfg.Pipeline.QueueSize,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize pipeline")
	}
	orchestrator.Start()

	sweeper := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Cleanup.MaxAgeHours)*time.Hour,
		log.Entry,
	)
	sweeper.SkipInUse(orchestrator.InUse)
	sweeper.Start()
	defer sweeper.Stop()

	if cfg.Watch.Dir != "" {
		inbox, err := watcher.New(cfg.Watch.Dir, cfg.Limits.AllowedExtensions, orchestrator, log.Entry)
		if err != nil {
			log.WithError(err).Fatal("Failed to watch inbox")
		}
		defer inbox.Close()
		go func() {
			if err := inbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("Inbox watcher stopped")
			}
		}()
	}

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Limits.MaxFileSize()) + 1024*1024,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))

	if cfg.Metrics.Enabled {
		app.Use(metrics.Middleware())
		app.Get(cfg.Metrics.Path, metrics.Handler())
	}

	routes := handlers.Routes{
		Upload: handlers.NewUploadHandler(orchestrator, log),
		Video:  handlers.NewVideoHandler(orchestrator, log),
		Tasks:  handlers.NewTaskHandler(orchestrator, deps.Storage, log),
		Stream: handlers.NewStreamHandler(orchestrator, cfg.Limits.MaxFileSize(), log),
	}
	if history != nil {
		routes.History = handlers.NewHistoryHandler(history, log)
	}
	handlers.Register(app, routes)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		log.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP shutdown incomplete")
		}
		if err := orchestrator.Stop(shutdownCtx); err != nil {
			log.WithError(err).Warn("Running tasks did not finish before shutdown")
		}
	}()

	addr := cfg.Addr()
	log.WithField("addr", addr).Info("Server starting")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Server failed")
	}

	<-stopped
	log.Info("Server stopped")
}

func newSummarizer(ctx context.Context, cfg config.SummarizerConfig) (summarization.Summarizer, error) {
	p := cfg.Active()
	if p.APIKey == "" {
		return summarization.NewUnconfigured(cfg.Provider), nil
	}

	if cfg.Provider == config.ProviderLlama {
		return summarization.NewChatClient(summarization.ChatConfig{
			APIKey:          p.APIKey,
			BaseURL:         p.BaseURL,
			Model:           p.Model,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
		}), nil
	}

	gemini, err := summarization.NewGeminiClient(ctx, summarization.GeminiConfig{
		APIKey:          p.APIKey,
		Model:           p.Model,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return gemini, nil
}
