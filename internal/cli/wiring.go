package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"practice-engine/internal/app"
	"practice-engine/internal/client"
	"practice-engine/internal/config"
	"practice-engine/internal/events"
	"practice-engine/internal/infra/memory"
	pgstore "practice-engine/internal/infra/postgres"
	redisstore "practice-engine/internal/infra/redis"
	"practice-engine/internal/metrics"
	transport "practice-engine/internal/transport/http"
)

// stack is the wired run host shared by start and play.
type stack struct {
	service *app.PracticeService
	metrics *metrics.Collectors
	checks  map[string]transport.Checker
	closers []func() error
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// progressStore is implemented by both the practice API and the Postgres store.
type progressStore interface {
	app.ProgressRecorder
	app.ProgressReader
}

func buildStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stack, error) {
	st := &stack{
		metrics: metrics.New(),
		checks:  make(map[string]transport.Checker),
	}
	ok := false
	defer func() {
		if !ok {
			st.Close()
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, redisClient.Close)
		st.checks["redis"] = transport.CheckFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	var (
		loader   memory.ScenarioLoader
		tools    app.ToolScenarioSource
		checker  app.CommandChecker
		progress progressStore
	)

	if cfg.Postgres.URL != "" && cfg.Scenario.Source != "api" {
		db := openBun(cfg.Postgres.URL)
		st.closers = append(st.closers, db.Close)
		progress = pgstore.NewProgressStore(db)
	}

	switch cfg.Scenario.Source {
	case "api":
		api := client.New(cfg.API.BaseURL, client.WithTimeout(config.TTLDuration(cfg.API.Timeout, 15*time.Second)))
		loader, tools, checker, progress = api, api, api, api
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("scenario source postgres needs postgres.url")
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.closers = append(st.closers, func() error { pool.Close(); return nil })
		pgLoader := pgstore.NewScenarioLoader(pool)
		st.checks["postgres"] = transport.CheckFunc(pgLoader.Ping)
		loader = pgLoader
	case "file":
		catalog, err := memory.LoadCatalog(cfg.Scenario.File)
		if err != nil {
			return nil, err
		}
		loader, tools, checker = catalog.ScenarioLoader(), catalog.ToolSource(), catalog.Checker()
	default:
		return nil, fmt.Errorf("unknown scenario source %q", cfg.Scenario.Source)
	}

	scenarioTTL := config.TTLDuration(cfg.Scenario.TTL, 5*time.Minute)
	var scenarios app.ScenarioRepository
	var runs app.RunRepository
	if redisClient != nil {
		scenarios = redisstore.NewScenarioRepository(redisClient, loader, scenarioTTL)
		runs = redisstore.NewRunStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		scenarios = memory.NewScenarioRepository(loader, scenarioTTL)
		runs = memory.NewRunStore()
	}

	publisher, err := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
	if err != nil {
		return nil, err
	}
	st.closers = append(st.closers, publisher.Close)

	opts := []app.ServiceOption{
		app.WithLogger(logger),
		app.WithObserver(st.metrics),
		app.WithPublisher(publisher),
		app.WithSaveRetry(cfg.Run.SaveAttempts, nil),
		app.WithSaveTimeout(config.TTLDuration(cfg.Run.SaveTimeout, 10*time.Second)),
		app.WithRunOptions(app.WithAutoFinishDelay(config.TTLDuration(cfg.Run.AutoFinishDelay, app.DefaultAutoFinishDelay))),
	}
	if tools != nil && checker != nil {
		opts = append(opts, app.WithToolPractice(tools, checker))
	}
	if progress != nil {
		opts = append(opts, app.WithProgress(progress, progress))
	}
	st.service = app.NewPracticeService(runs, scenarios, opts...)

	logger.Info("run host wired",
		"scenario_source", cfg.Scenario.Source,
		"redis", redisClient != nil,
		"progress", progress != nil,
		"events", cfg.RabbitMQ.URL != "",
	)
	ok = true
	return st, nil
}
