package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"practice-engine/internal/app"
	"practice-engine/internal/domain"
	pgstore "practice-engine/internal/infra/postgres"
	pgmigrations "practice-engine/internal/infra/postgres/migrations"
	infraredis "practice-engine/internal/infra/redis"
)

func TestPracticeRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migrateAndSeed(t, ctx, pgURL, sampleScenario())
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	scenarios := infraredis.NewScenarioRepository(redisClient, pgstore.NewScenarioLoader(pool), 5*time.Minute)
	runs := infraredis.NewRunStore(redisClient, 5*time.Minute)
	progress := pgstore.NewProgressStore(db)
	service := app.NewPracticeService(runs, scenarios,
		app.WithProgress(progress, progress),
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		app.WithRunOptions(app.WithAutoFinishDelay(0)),
	)

	if _, _, err := service.CreateRun(ctx, "missing", "u1"); !errors.Is(err, domain.ErrScenarioNotFound) {
		t.Fatalf("expected not found for unknown scenario, got %v", err)
	}

	snap, prior, err := service.CreateRun(ctx, "sc-1", "u1")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if len(prior) != 0 {
		t.Fatalf("expected no prior progress, got %+v", prior)
	}
	runID := snap.RunID

	updates, cancel, err := service.Subscribe(runID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if _, err := service.StartRun(ctx, runID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, runID, 0, "Nmap"); err != nil {
		t.Fatalf("answer 0: %v", err)
	}
	if eval, err := service.SubmitAnswer(ctx, runID, 1, "80"); err != nil || eval.IsCorrect {
		t.Fatalf("expected wrong answer, got %+v %v", eval, err)
	}
	if eval, err := service.SubmitAnswer(ctx, runID, 1, "443"); err != nil || !eval.AllCorrect {
		t.Fatalf("expected final correct answer, got %+v %v", eval, err)
	}

	final := waitSaved(t, updates)
	if final.SaveStatus != domain.SaveSaved || final.Score == nil || final.Score.Percentage != 100 {
		t.Fatalf("unexpected final snapshot %+v", final)
	}
	service.CloseRun(runID)

	_, prior, err = service.CreateRun(ctx, "sc-1", "u1")
	if err != nil {
		t.Fatalf("create second run: %v", err)
	}
	if len(prior) != 1 || prior[0].Score != 100 || !prior[0].IsCompleted {
		t.Fatalf("expected stored progress, got %+v", prior)
	}
}

func waitSaved(t *testing.T, updates <-chan domain.RunSnapshot) domain.RunSnapshot {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.Phase == domain.PhaseFinished && snap.SaveStatus != domain.SavePending {
				return snap
			}
		case <-timeout:
			t.Fatalf("run never settled")
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "practice", "POSTGRES_PASSWORD": "practicepass", "POSTGRES_DB": "practicedb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://practice:practicepass@%s:%s/practicedb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string, scenario domain.Scenario) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(scenario)
	if err != nil {
		t.Fatalf("marshal scenario: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO scenarios (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, scenario.ID, string(data)); err != nil {
		t.Fatalf("insert scenario: %v", err)
	}
	return db
}

func sampleScenario() domain.Scenario {
	return domain.Scenario{
		ID:               "sc-1",
		Title:            "Recon basics",
		Difficulty:       domain.DifficultyEasy,
		TimeLimitMinutes: 5,
		Questions: []domain.Question{
			{Prompt: "Which tool maps open ports?", CorrectAnswer: "nmap", Points: 10},
			{Prompt: "Default HTTPS port?", CorrectAnswer: "443", Points: 20},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
