package handler

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/domain"
)

// AlertStore is the slice of *alert.Store used by AlertsHandler.
type AlertStore interface {
	Alerts() []alert.Alert
	Alert(id string) (alert.Alert, bool)
	UnreadCount() int
	AddAlert(in alert.NewAlert) alert.Alert
	MarkAsRead(id string)
	MarkAllAsRead()
	DismissAlert(id string)
}

type AlertsHandler struct {
	store  AlertStore
	logger *slog.Logger
}

func NewAlertsHandler(store AlertStore, logger *slog.Logger) *AlertsHandler {
	return &AlertsHandler{
		store:  store,
		logger: logger,
	}
}

type AlertListResponse struct {
	Alerts      []alert.Alert `json:"alerts"`
	UnreadCount int           `json:"unreadCount"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

type CreateAlertRequest struct {
	Type      alert.Type     `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  alert.Severity `json:"severity"`
	Triggered bool           `json:"triggered"`
	Data      alert.Data     `json:"data"`
}

// List returns alerts newest first. Optional filters: type, severity
// and unread=true.
func (h *AlertsHandler) List(c *fiber.Ctx) error {
	typeFilter := alert.Type(c.Query("type"))
	if typeFilter != "" && !typeFilter.Valid() {
		return domain.ErrInvalidAlertType
	}
	severityFilter := alert.Severity(c.Query("severity"))
	if severityFilter != "" && !severityFilter.Valid() {
		return domain.ErrInvalidSeverity
	}
	unreadOnly := c.QueryBool("unread", false)

	all := h.store.Alerts()
	alerts := make([]alert.Alert, 0, len(all))
	for _, a := range all {
		if typeFilter != "" && a.Type != typeFilter {
			continue
		}
		if severityFilter != "" && a.Severity != severityFilter {
			continue
		}
		if unreadOnly && a.Triggered {
			continue
		}
		alerts = append(alerts, a)
	}

	return c.JSON(AlertListResponse{
		Alerts:      alerts,
		UnreadCount: h.store.UnreadCount(),
	})
}

func (h *AlertsHandler) Get(c *fiber.Ctx) error {
	a, ok := h.store.Alert(c.Params("id"))
	if !ok {
		return domain.ErrAlertNotFound
	}
	return c.JSON(a)
}

func (h *AlertsHandler) UnreadCount(c *fiber.Ctx) error {
	return c.JSON(UnreadCountResponse{UnreadCount: h.store.UnreadCount()})
}

// Create records an alert reported by a collaborator, e.g. a wallet
// extension flagging a risky transaction.
func (h *AlertsHandler) Create(c *fiber.Ctx) error {
	var req CreateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	if details := validateAlert(req); len(details) > 0 {
		return domain.ErrValidationFailed.WithDetails(details)
	}

	a := h.store.AddAlert(alert.NewAlert{
		Type:      req.Type,
		Title:     strings.TrimSpace(req.Title),
		Message:   req.Message,
		Severity:  req.Severity,
		Triggered: req.Triggered,
		Active:    true,
		Data:      req.Data,
	})

	h.logger.Info("alert created",
		"alert_id", a.ID,
		"type", a.Type,
		"severity", a.Severity,
	)

	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *AlertsHandler) MarkAsRead(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := h.store.Alert(id); !ok {
		return domain.ErrAlertNotFound
	}

	h.store.MarkAsRead(id)
	return c.JSON(UnreadCountResponse{UnreadCount: h.store.UnreadCount()})
}

func (h *AlertsHandler) MarkAllAsRead(c *fiber.Ctx) error {
	h.store.MarkAllAsRead()
	return c.JSON(UnreadCountResponse{UnreadCount: h.store.UnreadCount()})
}

// Dismiss deletes an alert. Unknown ids succeed.
func (h *AlertsHandler) Dismiss(c *fiber.Ctx) error {
	h.store.DismissAlert(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

func validateAlert(req CreateAlertRequest) map[string]string {
	details := make(map[string]string)
	if !req.Type.Valid() {
		details["type"] = domain.ErrInvalidAlertType.Message
	}
	if !req.Severity.Valid() {
		details["severity"] = domain.ErrInvalidSeverity.Message
	}
	if strings.TrimSpace(req.Title) == "" {
		details["title"] = "is required"
	}
	return details
}
