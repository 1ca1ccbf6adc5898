package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/email-ticket-service/internal/analysis"
	httptransport "github.com/spec-kit/email-ticket-service/internal/api/http"
	"github.com/spec-kit/email-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/email-ticket-service/internal/config"
	"github.com/spec-kit/email-ticket-service/internal/events"
	"github.com/spec-kit/email-ticket-service/internal/graph"
	"github.com/spec-kit/email-ticket-service/internal/notify"
	"github.com/spec-kit/email-ticket-service/internal/observability"
	"github.com/spec-kit/email-ticket-service/internal/persistence"
	"github.com/spec-kit/email-ticket-service/internal/repository"
	"github.com/spec-kit/email-ticket-service/internal/service"
	"github.com/spec-kit/email-ticket-service/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		ticketRepo   repository.TicketRepository
		analysisRepo repository.AnalysisRepository
	)
	if pg.Enabled() {
		ticketRepo = repository.NewTicketRepository(pg.Pool, pg.DB)
		analysisRepo = repository.NewAnalysisRepository(pg.DB)
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
		analysisRepo = repository.NewMemoryAnalysisRepository()
	}

	var deduper persistence.Deduper
	if redis.Enabled() {
		deduper = persistence.NewRedisDeduper(redis.Client, cfg.Redis.DedupTTL(), logger)
	} else {
		deduper = persistence.NewMemoryDeduper(cfg.Redis.DedupTTL())
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var provider analysis.Provider
	if cfg.Analysis.Enabled() {
		provider = analysis.NewOpenAIProvider(cfg.Analysis, logger)
	} else {
		logger.Warn("analysis API key not provided; ticket creation disabled, summarize uses fallback mode")
	}

	var sender service.ConfirmationSender
	if cfg.SMTP.Enabled() {
		sender = notify.NewSMTPMailer(cfg.SMTP, logger)
	} else {
		logger.Warn("SMTP credentials not provided; confirmation emails disabled")
	}

	var fetcher graph.MessageFetcher
	if cfg.Graph.Enabled() {
		fetcher = graph.NewClient(cfg.Graph, logger)
	} else {
		logger.Warn("graph credentials not provided; webhook notifications cannot be processed")
	}

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Sender:     sender,
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Timeout:    cfg.SMTP.Timeout(),
	})
	notifications.RegisterHandlers()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		Provider:      provider,
		Notifications: notifications,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		Config:        cfg.Ticket,
	})
	analysisService := service.NewAnalysisService(service.AnalysisDependencies{
		AnalysisRepo:  analysisRepo,
		Provider:      provider,
		Metrics:       metrics,
		Logger:        logger,
		SnippetLength: cfg.Ticket.SnippetLength,
	})

	webhookPool := worker.NewWebhookPool(fetcher, ticketService, cfg.Worker, metrics, logger)
	if err := webhookPool.Start(ctx); err != nil {
		logger.Fatal("failed to start webhook pool", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, ticketService.AnalysisConfigured(), pg, redis),
		Tickets:  handlers.NewTicketsHandler(ticketService),
		Analysis: handlers.NewAnalysisHandler(analysisService),
		Webhooks: handlers.NewWebhookHandler(webhookPool, deduper, cfg.Graph.ClientState, metrics, logger),
		Metrics:  metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := webhookPool.Stop(shutdownCtx); err != nil {
		logger.Warn("webhook pool shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
