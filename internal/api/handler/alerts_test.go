package handler

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
)

func setupAlertsApp(t *testing.T) (*fiber.App, *alert.Store) {
	t.Helper()
	store := newTestManager(t).Store()
	h := NewAlertsHandler(store, discardLogger())

	app := newTestApp()
	app.Get("/alerts", h.List)
	app.Post("/alerts", h.Create)
	app.Get("/alerts/unread-count", h.UnreadCount)
	app.Post("/alerts/read-all", h.MarkAllAsRead)
	app.Get("/alerts/:id", h.Get)
	app.Post("/alerts/:id/read", h.MarkAsRead)
	app.Delete("/alerts/:id", h.Dismiss)

	return app, store
}

func addSample(store *alert.Store, typ alert.Type, sev alert.Severity, title string) alert.Alert {
	return store.AddAlert(alert.NewAlert{Type: typ, Title: title, Severity: sev, Active: true})
}

func TestAlertsHandler_List(t *testing.T) {
	app, store := setupAlertsApp(t)

	gas := addSample(store, alert.TypeGas, alert.SeverityInfo, "High Gas Prices")
	price := addSample(store, alert.TypePrice, alert.SeverityWarning, "ETH Price Alert")
	store.MarkAsRead(gas.ID)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"all newest first", "", []string{price.ID, gas.ID}},
		{"by type", "?type=gas", []string{gas.ID}},
		{"by severity", "?severity=warning", []string{price.ID}},
		{"unread only", "?unread=true", []string{price.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, "GET", "/alerts"+tt.query, nil)
			require.Equal(t, 200, resp.StatusCode)

			var body AlertListResponse
			decode(t, resp, &body)

			var ids []string
			for _, a := range body.Alerts {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, 1, body.UnreadCount)
		})
	}

	t.Run("invalid filter", func(t *testing.T) {
		resp := doJSON(t, app, "GET", "/alerts?type=nft", nil)
		assert.Equal(t, 422, resp.StatusCode)

		var body errorBody
		decode(t, resp, &body)
		assert.Equal(t, "INVALID_ALERT_TYPE", body.Error.Code)
	})
}

func TestAlertsHandler_Create(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		app, store := setupAlertsApp(t)

		resp := doJSON(t, app, "POST", "/alerts", map[string]interface{}{
			"type":     "security",
			"title":    "Risky approval",
			"message":  "Unlimited token approval requested",
			"severity": "critical",
			"data":     map[string]interface{}{"transactionType": "approve", "riskLevel": "high"},
		})
		require.Equal(t, 201, resp.StatusCode)

		var created alert.Alert
		decode(t, resp, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, alert.TypeSecurity, created.Type)
		assert.False(t, created.Triggered)
		assert.True(t, created.Active)
		assert.Equal(t, "high", created.Data.RiskLevel)
		assert.Equal(t, 1, store.UnreadCount())
	})

	t.Run("validation", func(t *testing.T) {
		app, store := setupAlertsApp(t)

		resp := doJSON(t, app, "POST", "/alerts", map[string]interface{}{
			"type":     "nft",
			"title":    " ",
			"severity": "fatal",
		})
		require.Equal(t, 422, resp.StatusCode)

		var body errorBody
		decode(t, resp, &body)
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
		assert.Contains(t, body.Error.Details, "type")
		assert.Contains(t, body.Error.Details, "severity")
		assert.Contains(t, body.Error.Details, "title")
		assert.Empty(t, store.Alerts())
	})

	t.Run("malformed body", func(t *testing.T) {
		app, _ := setupAlertsApp(t)

		resp := doJSON(t, app, "POST", "/alerts", `{"type":`)
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestAlertsHandler_ReadLifecycle(t *testing.T) {
	app, store := setupAlertsApp(t)
	a := addSample(store, alert.TypeGas, alert.SeverityInfo, "A")
	addSample(store, alert.TypeGas, alert.SeverityInfo, "B")

	resp := doJSON(t, app, "GET", "/alerts/"+a.ID, nil)
	require.Equal(t, 200, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/alerts/"+a.ID+"/read", nil)
	require.Equal(t, 200, resp.StatusCode)
	var count UnreadCountResponse
	decode(t, resp, &count)
	assert.Equal(t, 1, count.UnreadCount)

	resp = doJSON(t, app, "POST", "/alerts/"+a.ID+"/read", nil)
	decode(t, resp, &count)
	assert.Equal(t, 1, count.UnreadCount, "marking twice does not double count")

	resp = doJSON(t, app, "POST", "/alerts/missing/read", nil)
	assert.Equal(t, 404, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/alerts/read-all", nil)
	decode(t, resp, &count)
	assert.Equal(t, 0, count.UnreadCount)

	resp = doJSON(t, app, "GET", "/alerts/unread-count", nil)
	decode(t, resp, &count)
	assert.Equal(t, 0, count.UnreadCount)
}

func TestAlertsHandler_Dismiss(t *testing.T) {
	app, store := setupAlertsApp(t)
	a := addSample(store, alert.TypeGas, alert.SeverityInfo, "A")

	resp := doJSON(t, app, "DELETE", "/alerts/"+a.ID, nil)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Empty(t, store.Alerts())
	assert.Equal(t, 0, store.UnreadCount())

	resp = doJSON(t, app, "DELETE", "/alerts/"+a.ID, nil)
	assert.Equal(t, 204, resp.StatusCode, "dismiss is idempotent")

	resp = doJSON(t, app, "GET", "/alerts/"+a.ID, nil)
	assert.Equal(t, 404, resp.StatusCode)
}
