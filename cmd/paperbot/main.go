package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/config"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/delivery"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/fetcher"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/logging"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/render"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/runner"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/storage"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/summarizer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.Logging.Level)
	defer logger.Sync()

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer store.Close()

	sources := buildSources(cfg)
	if len(sources) == 0 {
		logger.Fatal("no sources enabled")
	}

	backend := summarizer.NewOpenAIBackend(summarizer.BackendConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	generator := summarizer.NewGenerator(backend, cfg.LLM.MaxAttempts,
		time.Duration(cfg.LLM.BackoffSeconds)*time.Second, logger)

	channels, webViewer := buildChannels(cfg, store, logger)

	if webViewer != nil {
		if err := webViewer.Start(); err != nil {
			logger.Fatal("failed to start web viewer", zap.Error(err))
		}
	}

	r := runner.New(runner.Config{
		Topic:      cfg.Topic,
		MaxPapers:  cfg.MaxPapers,
		Workers:    cfg.Workers,
		ReportFile: cfg.ReportFile,
		Sources:    sources,
		Generator:  generator,
		History:    store,
		Report:     render.NewMarkdownRenderer(),
		Channels:   channels,
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		logger.Info("running digest (once mode)")
		if err := r.Run(ctx); err != nil {
			logger.Fatal("pipeline failed", zap.Error(err))
		}
		return
	}

	if cfg.RunOnStart {
		logger.Info("running initial digest")
		if err := r.Run(ctx); err != nil {
			logger.Error("initial run failed", zap.Error(err))
		}
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Schedule, func() {
		logger.Info("cron triggered, running digest")
		if err := r.Run(ctx); err != nil {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("failed to set up cron schedule",
			zap.String("schedule", cfg.Schedule), zap.Error(err))
	}
	c.Start()
	logger.Info("scheduled digest", zap.String("cron", cfg.Schedule))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	c.Stop()

	if webViewer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := webViewer.Shutdown(shutdownCtx); err != nil {
			logger.Error("web viewer shutdown error", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
}

func buildSources(cfg *config.Config) []fetcher.Fetcher {
	var sources []fetcher.Fetcher

	if cfg.Sources.Arxiv.Enabled {
		sources = append(sources, fetcher.NewArxivFetcher(
			cfg.Sources.Arxiv.Topics,
			cfg.Sources.Arxiv.MaxPerTopic,
			time.Duration(cfg.Sources.Arxiv.TopicDelaySeconds)*time.Second,
		))
	}

	if cfg.Sources.ArxivListing.Enabled {
		categories := make([]fetcher.ListingCategory, 0, len(cfg.Sources.ArxivListing.Categories))
		for _, c := range cfg.Sources.ArxivListing.Categories {
			categories = append(categories, fetcher.ListingCategory{Name: c.Name, URL: c.URL})
		}
		sources = append(sources, fetcher.NewArxivListingFetcher(categories))
	}

	if cfg.Sources.SemanticScholar.Enabled {
		sources = append(sources, fetcher.NewSemanticScholarFetcher(
			cfg.Sources.SemanticScholar.APIKey,
			cfg.Sources.SemanticScholar.Topics,
			cfg.Sources.SemanticScholar.MaxPerTopic,
		))
	}

	if cfg.Sources.Springer.Enabled {
		sources = append(sources, fetcher.NewSpringerFetcher(
			cfg.Sources.Springer.Feeds,
			cfg.Sources.Springer.MaxPerFeed,
		))
	}

	return sources
}

func buildChannels(cfg *config.Config, store *storage.Store, logger *zap.Logger) ([]runner.Channel, *delivery.WebViewer) {
	var channels []runner.Channel

	if cfg.Channels.WeChat.WebhookURL != "" {
		channels = append(channels, runner.Channel{
			Name:      "wechat",
			Renderer:  render.NewWeChatRenderer(cfg.Channels.WeChat.MaxChars),
			Notifier:  delivery.NewWeChatNotifier(cfg.Channels.WeChat.WebhookURL),
			Scheduler: delivery.NewScheduler("wechat", cfg.RateLimit, store, logger),
		})
	}

	if cfg.Channels.Feishu.WebhookURL != "" {
		channels = append(channels, runner.Channel{
			Name:      "feishu",
			Renderer:  render.NewFeishuRenderer(cfg.Channels.Feishu.MaxBytes),
			Notifier:  delivery.NewFeishuNotifier(cfg.Channels.Feishu.WebhookURL),
			Scheduler: delivery.NewScheduler("feishu", cfg.RateLimit, store, logger),
		})
	}

	var webViewer *delivery.WebViewer
	if cfg.Web.Enabled {
		webViewer = delivery.NewWebViewer(cfg.Web.Addr, logger)
		// The web channel gets the full report and never rate limits.
		channels = append(channels, runner.Channel{
			Name:     "web",
			Notifier: webViewer,
		})
	}

	return channels, webViewer
}
