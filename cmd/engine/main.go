package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/alerting"
	httptransport "github.com/KyleMonteagudo/csat-guardian-sub001/internal/api/http"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/api/http/handlers"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/coaching"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/engine"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/observability"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/persistence"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/repository"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/sentiment"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/source"
)

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

	rules, err := config.LoadRules(cfg.RulesPath, logger)
	if err != nil {
		logger.Fatal("failed to load risk rules", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	if err := observability.Register(registry); err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()

	var alertRepo repository.AlertRepository
	var assessmentRepo repository.AssessmentRepository
	if pool != nil {
		alertRepo = repository.NewAlertRepository(pool)
		assessmentRepo = repository.NewAssessmentRepository(pool)
	} else {
		alertRepo = repository.NewMemoryAlertRepository()
		assessmentRepo = repository.NewMemoryAssessmentRepository()
	}

	var sampleCache sentiment.SampleCache
	if redis.Ping(ctx) == nil {
		sampleCache = sentiment.NewRedisSampleCache(redis.Client)
	} else {
		sampleCache = sentiment.NewMemorySampleCache()
	}

	var notifier alerting.Notifier
	if cfg.Notification.NatsURL != "" {
		natsNotifier, err := alerting.NewNatsNotifier(cfg.Notification, logger)
		if err != nil {
			logger.Fatal("failed to connect nats", zap.Error(err))
		}
		defer natsNotifier.Close()
		notifier = natsNotifier
	} else {
		notifier = alerting.NewLogNotifier(logger)
	}

	var elaborator coaching.Elaborator
	if cfg.Generative.APIKey != "" {
		elaborator = coaching.NewGenerativeClient(cfg.Generative)
	}

	caseSource := source.NewClient(cfg.Source)
	analyzer := sentiment.NewAnalyzer(sentiment.NewHTTPClassifier(cfg.Classifier), sampleCache, logger)
	machine := alerting.NewStateMachine(alertRepo, notifier, logger)
	composer := coaching.NewComposer(elaborator, logger)
	snapshots := engine.NewSnapshotStore()

	pipeline := engine.NewPipeline(engine.PipelineDependencies{
		Source:      caseSource,
		Analyzer:    analyzer,
		Machine:     machine,
		Composer:    composer,
		Assessments: assessmentRepo,
		Rules:       rules,
		Snapshots:   snapshots,
		Logger:      logger,
	})

	scheduler := engine.NewScheduler(pipeline, caseSource, cfg.Engine, rules, logger)
	scheduler.Start(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	queryHandler := handlers.NewQueryHandler(snapshots, assessmentRepo, scheduler)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   healthHandler,
		Query:    queryHandler,
		Registry: registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	scheduler.Wait()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
