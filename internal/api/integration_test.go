//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/database"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "defiwatch_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Printf("Failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	connStr := fmt.Sprintf("postgres://test:test@%s:%s/defiwatch_test?sslmode=disable", host, port.Port())

	if err := database.MigrateUp(ctx, connStr); err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	testDB, err = database.NewPgxPool(ctx, database.DefaultPoolConfig(connStr))
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	if err := container.Terminate(ctx); err != nil {
		fmt.Printf("Failed to terminate container: %v\n", err)
	}
	os.Exit(code)
}

func newIntegrationManager(t *testing.T, installation string) *alert.Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := alert.NewStore(nil, logger)
	engine := alert.NewEngine(store, alert.NewPriceHistory(48*time.Hour), logger)
	repo := alert.NewRepository(testDB, installation)

	m := alert.NewManager(store, engine, nil, repo, logger, alert.ManagerConfig{})
	require.NoError(t, m.Init(context.Background()))
	return m
}

func newIntegrationRouter(m *alert.Manager) *Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(logger, &Dependencies{Manager: m, DB: testDB})
	r.Setup()
	return r
}

func request(t *testing.T, r *Router, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.App().Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func TestReadyWithDatabase(t *testing.T) {
	r := newIntegrationRouter(newIntegrationManager(t, "ready-check"))
	defer func() { _ = r.Shutdown() }()

	resp := request(t, r, "GET", "/ready", nil)
	require.Equal(t, 200, resp.StatusCode)

	var body handler.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Database)
}

func TestAlertLifecycleSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	const installation = "lifecycle"

	m := newIntegrationManager(t, installation)
	r := newIntegrationRouter(m)
	defer func() { _ = r.Shutdown() }()

	resp := request(t, r, "DELETE", "/v1/rules/"+alert.DefaultPriceDropRuleID, nil)
	require.Equal(t, 204, resp.StatusCode)

	resp = request(t, r, "PATCH", "/v1/rules/"+alert.DefaultGasHighRuleID, map[string]interface{}{
		"conditions": map[string]interface{}{"threshold": 30},
	})
	require.Equal(t, 200, resp.StatusCode)

	resp = request(t, r, "POST", "/v1/snapshots/gas", map[string]interface{}{
		"gasPrices": map[string]float64{"ethereum": 42},
	})
	require.Equal(t, 200, resp.StatusCode)

	var snapshot handler.SnapshotResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	require.Len(t, snapshot.Alerts, 1)

	require.NoError(t, m.Flush(ctx))

	restarted := newIntegrationManager(t, installation)

	rules := restarted.Rules()
	require.Len(t, rules, 1, "deleted default rule is not re-seeded")
	threshold, _ := rules[0].Conditions.Number("threshold")
	assert.Equal(t, 30.0, threshold)

	alerts := restarted.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, snapshot.Alerts[0].ID, alerts[0].ID)
	assert.Equal(t, 1, restarted.UnreadCount())
}
