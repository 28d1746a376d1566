package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"practice-engine/internal/domain"
)

// ScenarioLoader loads scenario JSONB from Postgres.
type ScenarioLoader struct {
	pool *pgxpool.Pool
}

func NewScenarioLoader(pool *pgxpool.Pool) *ScenarioLoader {
	return &ScenarioLoader{pool: pool}
}

func (l *ScenarioLoader) LoadScenario(ctx context.Context, scenarioID string) (domain.Scenario, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM scenarios WHERE id=$1`, scenarioID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Scenario{}, domain.ErrScenarioNotFound
	}
	if err != nil {
		return domain.Scenario{}, &domain.NetworkError{Op: "load scenario", Err: err}
	}
	var scenario domain.Scenario
	if err := json.Unmarshal(raw, &scenario); err != nil {
		return domain.Scenario{}, fmt.Errorf("unmarshal scenario: %w", err)
	}
	if scenario.ID == "" {
		scenario.ID = scenarioID
	}
	return scenario, nil
}

// Ping reports whether the pool can reach the database.
func (l *ScenarioLoader) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}
