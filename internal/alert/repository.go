package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoState is returned by Load when nothing has been persisted yet.
var ErrNoState = errors.New("no persisted alert state")

type StateRepository interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// Repository stores the whole alert state of one installation as a
// single JSONB document.
type Repository struct {
	db             DB
	installationID string
}

func NewRepository(db *pgxpool.Pool, installationID string) *Repository {
	return &Repository{db: db, installationID: installationID}
}

func NewRepositoryWithDB(db DB, installationID string) *Repository {
	return &Repository{db: db, installationID: installationID}
}

func (r *Repository) Load(ctx context.Context) (State, error) {
	query := `SELECT state FROM alert_state WHERE installation_id = $1`

	var raw []byte
	err := r.db.QueryRow(ctx, query, r.installationID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{}, ErrNoState
		}
		return State{}, fmt.Errorf("load alert state: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("unmarshal alert state: %w", err)
	}

	if state.Alerts == nil {
		state.Alerts = []Alert{}
	}
	if state.AlertRules == nil {
		state.AlertRules = []AlertRule{}
	}

	return state, nil
}

func (r *Repository) Save(ctx context.Context, state State) error {
	if state.Alerts == nil {
		state.Alerts = []Alert{}
	}
	if state.AlertRules == nil {
		state.AlertRules = []AlertRule{}
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal alert state: %w", err)
	}

	query := `
		INSERT INTO alert_state (installation_id, state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (installation_id) DO UPDATE
		SET state = EXCLUDED.state,
		    updated_at = NOW()
	`

	if _, err := r.db.Exec(ctx, query, r.installationID, raw); err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}

	return nil
}
