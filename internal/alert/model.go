package alert

import "time"

type Type string

const (
	TypePrice     Type = "price"
	TypePortfolio Type = "portfolio"
	TypeGas       Type = "gas"
	TypeYield     Type = "yield"
	TypeSecurity  Type = "security"
)

func (t Type) Valid() bool {
	switch t {
	case TypePrice, TypePortfolio, TypeGas, TypeYield, TypeSecurity:
		return true
	default:
		return false
	}
}

// Evaluable reports whether rules of this type are consumed by an evaluator.
func (t Type) Evaluable() bool {
	return t.Valid() && t != TypeSecurity
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	default:
		return false
	}
}

// Alert is a single notification instance. Triggered gates read state:
// false means the alert is still unread.
type Alert struct {
	ID          string   `json:"id"`
	Type        Type     `json:"type"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Triggered   bool     `json:"triggered"`
	CreatedAt   int64    `json:"createdAt"`
	TriggeredAt *int64   `json:"triggeredAt,omitempty"`
	Active      bool     `json:"active"`
	Data        Data     `json:"data"`
}

// Created returns CreatedAt as a time.Time.
func (a Alert) Created() time.Time {
	return time.UnixMilli(a.CreatedAt)
}

// Data is the per-type payload of an alert. Only the fields relevant to
// the alert type are set.
type Data struct {
	// price
	Token         string   `json:"token,omitempty"`
	TargetPrice   *float64 `json:"targetPrice,omitempty"`
	Condition     string   `json:"condition,omitempty"`
	ChangePercent *float64 `json:"changePercent,omitempty"`

	// portfolio
	PortfolioValue *float64 `json:"portfolioValue,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty"`

	// gas
	GasPrice *float64 `json:"gasPrice,omitempty"`
	Network  string   `json:"network,omitempty"`

	// yield
	Protocol string   `json:"protocol,omitempty"`
	MinAPY   *float64 `json:"minAPY,omitempty"`
	APY      *float64 `json:"apy,omitempty"`

	// security
	TransactionType string `json:"transactionType,omitempty"`
	RiskLevel       string `json:"riskLevel,omitempty"`
	Error           string `json:"error,omitempty"`
	Action          string `json:"action,omitempty"`

	Extra map[string]interface{} `json:"extra,omitempty"`
}

// NewAlert is the payload accepted by Store.AddAlert; id and creation
// time are assigned by the store.
type NewAlert struct {
	Type        Type
	Title       string
	Message     string
	Severity    Severity
	Triggered   bool
	TriggeredAt *int64
	Active      bool
	Data        Data
}

type AlertRule struct {
	ID         string     `json:"id"`
	Type       Type       `json:"type"`
	Name       string     `json:"name"`
	Conditions Conditions `json:"conditions"`
	Active     bool       `json:"active"`
	CreatedAt  int64      `json:"createdAt"`
}

type NewRule struct {
	Type       Type
	Name       string
	Conditions Conditions
	Active     bool
}

// RuleUpdate is a partial update. Nil fields are left untouched and
// Conditions is merged key by key into the existing conditions.
type RuleUpdate struct {
	Name       *string
	Conditions Conditions
	Active     *bool
}

// State is the persisted layout of the store. Unread count is derived.
type State struct {
	Alerts     []Alert     `json:"alerts"`
	AlertRules []AlertRule `json:"alertRules"`
}

type YieldOpportunity struct {
	Protocol string  `json:"protocol"`
	APY      float64 `json:"apy"`
}

func float(v float64) *float64 {
	return &v
}
