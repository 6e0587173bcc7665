package handler

import (
	"log/slog"
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/domain"
)

// Checker runs market snapshots through the rule evaluators.
// *alert.Manager implements it.
type Checker interface {
	CheckPrices(prices map[string]float64) []alert.Alert
	CheckPortfolio(value float64) []alert.Alert
	CheckGas(gasPrices map[string]float64) []alert.Alert
	CheckYields(opportunities []alert.YieldOpportunity) []alert.Alert
}

type SnapshotsHandler struct {
	checker Checker
	logger  *slog.Logger
}

func NewSnapshotsHandler(checker Checker, logger *slog.Logger) *SnapshotsHandler {
	return &SnapshotsHandler{
		checker: checker,
		logger:  logger,
	}
}

type PricesSnapshotRequest struct {
	Prices map[string]float64 `json:"prices"`
}

type PortfolioSnapshotRequest struct {
	Value *float64 `json:"value"`
}

type GasSnapshotRequest struct {
	GasPrices map[string]float64 `json:"gasPrices"`
}

type YieldsSnapshotRequest struct {
	Opportunities []alert.YieldOpportunity `json:"opportunities"`
}

// SnapshotResponse lists the alerts emitted by one evaluation.
type SnapshotResponse struct {
	Alerts []alert.Alert `json:"alerts"`
}

func (h *SnapshotsHandler) Prices(c *fiber.Ctx) error {
	var req PricesSnapshotRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if len(req.Prices) == 0 {
		return domain.ErrEmptySnapshot
	}
	if details := invalidValues(req.Prices); len(details) > 0 {
		return domain.ErrValidationFailed.WithDetails(details)
	}

	return h.respond(c, "prices", h.checker.CheckPrices(req.Prices))
}

func (h *SnapshotsHandler) Portfolio(c *fiber.Ctx) error {
	var req PortfolioSnapshotRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if req.Value == nil {
		return domain.ErrEmptySnapshot
	}
	if !finite(*req.Value) || *req.Value < 0 {
		return domain.ErrValidationFailed.WithDetails(map[string]string{"value": "must be a non-negative number"})
	}

	return h.respond(c, "portfolio", h.checker.CheckPortfolio(*req.Value))
}

func (h *SnapshotsHandler) Gas(c *fiber.Ctx) error {
	var req GasSnapshotRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if len(req.GasPrices) == 0 {
		return domain.ErrEmptySnapshot
	}
	if details := invalidValues(req.GasPrices); len(details) > 0 {
		return domain.ErrValidationFailed.WithDetails(details)
	}

	return h.respond(c, "gas", h.checker.CheckGas(req.GasPrices))
}

func (h *SnapshotsHandler) Yields(c *fiber.Ctx) error {
	var req YieldsSnapshotRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if len(req.Opportunities) == 0 {
		return domain.ErrEmptySnapshot
	}

	return h.respond(c, "yields", h.checker.CheckYields(req.Opportunities))
}

func (h *SnapshotsHandler) respond(c *fiber.Ctx, kind string, alerts []alert.Alert) error {
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	if len(alerts) > 0 {
		h.logger.Info("snapshot triggered alerts", "snapshot", kind, "count", len(alerts))
	}
	return c.JSON(SnapshotResponse{Alerts: alerts})
}

func invalidValues(values map[string]float64) map[string]string {
	details := make(map[string]string)
	for key, v := range values {
		if !finite(v) || v < 0 {
			details[key] = "must be a non-negative number"
		}
	}
	return details
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
