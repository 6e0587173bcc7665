package alert

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInstallation = "dashboard-1"

func TestRepository_Load(t *testing.T) {
	t.Run("persisted state", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepositoryWithDB(mock, testInstallation)

		raw := []byte(`{
			"alerts": [{"id":"a1","type":"gas","title":"High Gas Prices","message":"m","severity":"info","triggered":false,"createdAt":1710417600000,"active":true,"data":{"gasPrice":75,"network":"ethereum"}}],
			"alertRules": [{"id":"default-gas-high","type":"gas","name":"High Gas Prices","conditions":{"threshold":50,"network":"ethereum"},"active":true,"createdAt":1710417600000}]
		}`)
		mock.ExpectQuery("SELECT state FROM alert_state").
			WithArgs(testInstallation).
			WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(raw))

		state, err := repo.Load(context.Background())
		require.NoError(t, err)

		require.Len(t, state.Alerts, 1)
		assert.Equal(t, "a1", state.Alerts[0].ID)
		assert.Equal(t, 75.0, *state.Alerts[0].Data.GasPrice)

		require.Len(t, state.AlertRules, 1)
		threshold, ok := state.AlertRules[0].Conditions.Number("threshold")
		assert.True(t, ok)
		assert.Equal(t, 50.0, threshold)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty document", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepositoryWithDB(mock, testInstallation)

		mock.ExpectQuery("SELECT state FROM alert_state").
			WithArgs(testInstallation).
			WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow([]byte(`{}`)))

		state, err := repo.Load(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, state.Alerts)
		assert.NotNil(t, state.AlertRules)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing persisted", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepositoryWithDB(mock, testInstallation)

		mock.ExpectQuery("SELECT state FROM alert_state").
			WithArgs(testInstallation).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.Load(context.Background())
		assert.ErrorIs(t, err, ErrNoState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepositoryWithDB(mock, testInstallation)
		dbErr := errors.New("connection reset")

		mock.ExpectQuery("SELECT state FROM alert_state").
			WithArgs(testInstallation).
			WillReturnError(dbErr)

		_, err = repo.Load(context.Background())
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrNoState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt document", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepositoryWithDB(mock, testInstallation)

		mock.ExpectQuery("SELECT state FROM alert_state").
			WithArgs(testInstallation).
			WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow([]byte(`{"alerts":`)))

		_, err = repo.Load(context.Background())
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Save(t *testing.T) {
	t.Run("upsert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepositoryWithDB(mock, testInstallation)

		mock.ExpectExec("INSERT INTO alert_state").
			WithArgs(testInstallation, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.Save(context.Background(), State{AlertRules: DefaultRules()})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepositoryWithDB(mock, testInstallation)

		mock.ExpectExec("INSERT INTO alert_state").
			WithArgs(testInstallation, pgxmock.AnyArg()).
			WillReturnError(errors.New("disk full"))

		err = repo.Save(context.Background(), State{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "save alert state")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
