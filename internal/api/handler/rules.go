package handler

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
	"github.com/saturnino-fabrica-de-software/defiwatch/internal/domain"
)

// RuleStore is the slice of *alert.Store used by RulesHandler.
type RuleStore interface {
	Rules() []alert.AlertRule
	Rule(id string) (alert.AlertRule, bool)
	AddRule(in alert.NewRule) alert.AlertRule
	UpdateRule(id string, upd alert.RuleUpdate) (alert.AlertRule, bool)
	DeleteRule(id string) bool
}

type RulesHandler struct {
	store  RuleStore
	logger *slog.Logger
}

func NewRulesHandler(store RuleStore, logger *slog.Logger) *RulesHandler {
	return &RulesHandler{
		store:  store,
		logger: logger,
	}
}

type RuleListResponse struct {
	Rules []alert.AlertRule `json:"rules"`
}

type CreateRuleRequest struct {
	Type       alert.Type       `json:"type"`
	Name       string           `json:"name"`
	Conditions alert.Conditions `json:"conditions"`
	Active     *bool            `json:"active"`
}

type UpdateRuleRequest struct {
	Name       *string          `json:"name"`
	Conditions alert.Conditions `json:"conditions"`
	Active     *bool            `json:"active"`
}

func (h *RulesHandler) List(c *fiber.Ctx) error {
	return c.JSON(RuleListResponse{Rules: h.store.Rules()})
}

func (h *RulesHandler) Get(c *fiber.Ctx) error {
	rule, ok := h.store.Rule(c.Params("id"))
	if !ok {
		return domain.ErrRuleNotFound
	}
	return c.JSON(rule)
}

func (h *RulesHandler) Create(c *fiber.Ctx) error {
	var req CreateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	details := make(map[string]string)
	if !req.Type.Valid() {
		details["type"] = domain.ErrInvalidAlertType.Message
	}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "is required"
	}
	if req.Conditions == nil {
		details["conditions"] = "is required"
	}
	addNonFinite(details, req.Conditions)
	if len(details) > 0 {
		return domain.ErrValidationFailed.WithDetails(details)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := h.store.AddRule(alert.NewRule{
		Type:       req.Type,
		Name:       strings.TrimSpace(req.Name),
		Conditions: req.Conditions,
		Active:     active,
	})

	h.logger.Info("alert rule created",
		"rule_id", rule.ID,
		"type", rule.Type,
		"name", rule.Name,
	)

	return c.Status(fiber.StatusCreated).JSON(rule)
}

// Update applies a partial update; conditions are merged key by key.
func (h *RulesHandler) Update(c *fiber.Ctx) error {
	var req UpdateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	details := make(map[string]string)
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		details["name"] = "must not be empty"
	}
	addNonFinite(details, req.Conditions)
	if len(details) > 0 {
		return domain.ErrValidationFailed.WithDetails(details)
	}

	rule, ok := h.store.UpdateRule(c.Params("id"), alert.RuleUpdate{
		Name:       req.Name,
		Conditions: req.Conditions,
		Active:     req.Active,
	})
	if !ok {
		return domain.ErrRuleNotFound
	}

	h.logger.Info("alert rule updated", "rule_id", rule.ID)

	return c.JSON(rule)
}

func (h *RulesHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if h.store.DeleteRule(id) {
		h.logger.Info("alert rule deleted", "rule_id", id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func addNonFinite(details map[string]string, conditions alert.Conditions) {
	for _, key := range conditions.NonFinite() {
		details["conditions."+key] = "must be a finite number"
	}
}
