package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/applicant-harvester/internal/adapter/broadcast"
	"github.com/user/applicant-harvester/internal/adapter/chromedp_page"
	"github.com/user/applicant-harvester/internal/adapter/download"
	"github.com/user/applicant-harvester/internal/adapter/kafka"
	"github.com/user/applicant-harvester/internal/adapter/postgres"
	"github.com/user/applicant-harvester/internal/adapter/redis"
	"github.com/user/applicant-harvester/internal/adapter/xlsx"
	"github.com/user/applicant-harvester/internal/experience"
	"github.com/user/applicant-harvester/internal/repository"
	"github.com/user/applicant-harvester/internal/usecase"
	"github.com/user/applicant-harvester/pkg/config"
	"github.com/user/applicant-harvester/pkg/logger"
)

const (
	siteURL    = "https://www.linkedin.com"
	siteDomain = "linkedin.com"
)

// app holds the wired dependency graph shared by serve and extract.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	hub        *broadcast.Hub
	controller *usecase.ExtractionController
	closers    []func()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func traversalConfig(cfg *config.Config) usecase.TraversalConfig {
	return usecase.TraversalConfig{
		PageSize:           cfg.PageSize,
		SettleDelay:        cfg.SettleDelay(),
		AffordanceAttempts: cfg.AffordanceAttempts,
		AffordanceInterval: cfg.AffordanceInterval(),
		InterItemDelay:     cfg.InterItemDelay(),
		EllipsisDelay:      cfg.EllipsisDelay(),
		PageSettleDelay:    cfg.PageSettleDelay(),
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: log, hub: broadcast.NewHub()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	session, err := chromedp_page.NewSession(context.Background(), chromedp_page.SessionConfig{
		DebugURL:    cfg.ChromeDebugURL,
		UserDataDir: cfg.ChromeUserDataDir,
		Headless:    cfg.Headless,
		StartURL:    cfg.StartURL,
		AttachHost:  siteDomain,
	}, log.Named("browser"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, session.Close)
	page := chromedp_page.NewPage(session, log.Named("page"))

	dispatcher, err := download.NewDispatcher(download.Config{
		Dir:     cfg.DownloadDir,
		Workers: cfg.DownloadWorkers,
		Timeout: cfg.DownloadTimeout(),
		BaseURL: siteURL,
	}, session, nil, log.Named("download"))
	if err != nil {
		return nil, err
	}
	// Runs before the session is closed: downloads need its cookies.
	a.closers = append(a.closers, dispatcher.Close)

	var (
		records    repository.ApplicantRepository
		runs       repository.RunRepository
		statusRepo repository.StatusRepository
	)
	publishers := broadcast.Fanout{a.hub}

	if cfg.PostgresURL != "" {
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		records = postgres.NewApplicantRepo(pool)
		runs = postgres.NewRunRepo(pool)
		log.Info("postgres record store enabled")
	}

	if cfg.RedisAddr != "" {
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		statusRepo = redis.NewStatusRepo(client, cfg.StatusTTL())
		log.Info("redis status store enabled", zap.String("addr", cfg.RedisAddr))
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		pub := kafka.NewPublisher(brokers, cfg.KafkaTopic)
		a.closers = append(a.closers, func() { _ = pub.Close() })
		publishers = append(publishers, pub)
		log.Info("kafka event stream enabled", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}

	engine := usecase.NewTraversalEngine(
		page,
		experience.NewSummarizer(log.Named("experience")),
		dispatcher,
		records,
		traversalConfig(cfg),
		log.Named("traversal"),
	)

	controller, err := usecase.NewExtractionController(usecase.ControllerDeps{
		Engine:      engine,
		Page:        page,
		Exporter:    xlsx.NewExporter(cfg.ExportDir, log.Named("export")),
		Publisher:   publishers,
		StatusRepo:  statusRepo,
		RunRepo:     runs,
		PathPattern: cfg.RequiredPathPattern,
		Logger:      log.Named("controller"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build controller: %w", err)
	}
	a.controller = controller
	a.closers = append(a.closers, controller.Close)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
