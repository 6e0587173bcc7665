package alert

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const defaultPriceWindow = 24 * time.Hour

// Engine evaluates market snapshots against the active rules of the
// store and records the resulting alerts. Rules are read from the store
// on every call so edits apply to the next evaluation.
type Engine struct {
	store   *Store
	history *PriceHistory
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	lastFired map[string]time.Time
}

func NewEngine(store *Store, history *PriceHistory, logger *slog.Logger) *Engine {
	if history == nil {
		history = NewPriceHistory(0)
	}

	return &Engine{
		store:     store,
		history:   history,
		logger:    logger,
		now:       time.Now,
		lastFired: make(map[string]time.Time),
	}
}

func (e *Engine) History() *PriceHistory {
	return e.history
}

// EvaluatePrices checks every active price rule against every symbol of
// the snapshot, then records the snapshot as the newest observation.
func (e *Engine) EvaluatePrices(prices map[string]float64) []Alert {
	now := e.now()
	rules := e.store.ActiveRules(TypePrice)
	symbols := sortedKeys(prices)

	var fired []Alert
	for _, rule := range rules {
		for _, symbol := range symbols {
			price := prices[symbol]
			if price <= 0 {
				continue
			}
			if token := rule.Conditions.String("token"); token != "" && !strings.EqualFold(token, symbol) {
				continue
			}

			in, ok := e.evaluatePriceRule(rule, symbol, price, now)
			if !ok || !e.shouldTrigger(rule, symbol, now) {
				continue
			}
			fired = append(fired, e.store.AddAlert(in))
		}
	}

	for _, symbol := range symbols {
		e.history.Record(symbol, prices[symbol], now)
	}

	e.logger.Debug("price snapshot evaluated",
		"symbols", len(symbols),
		"rules", len(rules),
		"fired", len(fired),
	)

	return fired
}

func (e *Engine) evaluatePriceRule(rule AlertRule, symbol string, price float64, now time.Time) (NewAlert, bool) {
	switch mode := rule.Conditions.String("condition"); mode {
	case "above", "below":
		target, ok := rule.Conditions.Number("targetPrice")
		if !ok {
			return NewAlert{}, false
		}

		op := "gte"
		if mode == "below" {
			op = "lte"
		}
		if !evaluateCondition(rule.Conditions.String("operator"), op, price, target) {
			return NewAlert{}, false
		}

		return NewAlert{
			Type:     TypePrice,
			Title:    fmt.Sprintf("%s Price Alert", symbol),
			Message:  fmt.Sprintf("%s is %s $%s (now $%s).", symbol, mode, formatNumber(target), formatNumber(price)),
			Severity: SeverityWarning,
			Active:   true,
			Data: Data{
				Token:       symbol,
				TargetPrice: float(target),
				Condition:   mode,
			},
		}, true
	}

	threshold, ok := rule.Conditions.Number("changePercent")
	if !ok || threshold == 0 {
		return NewAlert{}, false
	}

	window := rule.Conditions.Duration("timeWindow", defaultPriceWindow)
	ref, ok := e.history.Reference(symbol, window, now)
	if !ok {
		e.logger.Debug("no reference price", "symbol", symbol, "rule_id", rule.ID)
		return NewAlert{}, false
	}

	change := (price - ref) / ref * 100

	op := "gte"
	if threshold < 0 {
		op = "lte"
	}
	if !evaluateCondition(rule.Conditions.String("operator"), op, change, threshold) {
		return NewAlert{}, false
	}

	rounded, _ := decimal.NewFromFloat(change).Round(2).Float64()
	return NewAlert{
		Type:     TypePrice,
		Title:    fmt.Sprintf("%s Price Alert", symbol),
		Message:  fmt.Sprintf("%s has moved %s%% in the last %s.", symbol, formatNumber(change), formatWindow(window)),
		Severity: SeverityWarning,
		Active:   true,
		Data: Data{
			Token:         symbol,
			TargetPrice:   float(price),
			Condition:     "change",
			ChangePercent: float(rounded),
		},
	}, true
}

// EvaluatePortfolio fires every active portfolio rule whose threshold
// the total value has fallen below.
func (e *Engine) EvaluatePortfolio(value float64) []Alert {
	now := e.now()

	var fired []Alert
	for _, rule := range e.store.ActiveRules(TypePortfolio) {
		threshold, ok := rule.Conditions.Number("threshold")
		if !ok {
			continue
		}
		if !evaluateCondition(rule.Conditions.String("operator"), "lt", value, threshold) {
			continue
		}
		if !e.shouldTrigger(rule, "portfolio", now) {
			continue
		}

		fired = append(fired, e.store.AddAlert(NewAlert{
			Type:     TypePortfolio,
			Title:    "Portfolio Value Alert",
			Message:  fmt.Sprintf("Your portfolio value has dropped below $%s.", formatNumber(threshold)),
			Severity: SeverityWarning,
			Active:   true,
			Data: Data{
				PortfolioValue: float(value),
				Threshold:      float(threshold),
			},
		}))
	}

	return fired
}

// EvaluateGas fires for every network whose gas price exceeds an active
// gas rule. A rule carrying a network only applies to that network.
func (e *Engine) EvaluateGas(gasPrices map[string]float64) []Alert {
	now := e.now()
	rules := e.store.ActiveRules(TypeGas)

	var fired []Alert
	for _, network := range sortedKeys(gasPrices) {
		price := gasPrices[network]
		for _, rule := range rules {
			if n := rule.Conditions.String("network"); n != "" && !strings.EqualFold(n, network) {
				continue
			}
			threshold, ok := rule.Conditions.Number("threshold")
			if !ok {
				continue
			}
			if !evaluateCondition(rule.Conditions.String("operator"), "gt", price, threshold) {
				continue
			}
			if !e.shouldTrigger(rule, network, now) {
				continue
			}

			fired = append(fired, e.store.AddAlert(NewAlert{
				Type:     TypeGas,
				Title:    "High Gas Prices",
				Message:  fmt.Sprintf("Gas prices on %s are high (%s gwei). Consider waiting.", network, formatNumber(price)),
				Severity: SeverityInfo,
				Active:   true,
				Data: Data{
					GasPrice: float(price),
					Network:  network,
				},
			}))
		}
	}

	return fired
}

// EvaluateYields fires for every opportunity whose APY is above the
// minimum of an active yield rule.
func (e *Engine) EvaluateYields(opportunities []YieldOpportunity) []Alert {
	now := e.now()
	rules := e.store.ActiveRules(TypeYield)

	var fired []Alert
	for _, opp := range opportunities {
		for _, rule := range rules {
			minAPY, ok := rule.Conditions.Number("minAPY")
			if !ok {
				continue
			}
			if !evaluateCondition(rule.Conditions.String("operator"), "gt", opp.APY, minAPY) {
				continue
			}
			if !e.shouldTrigger(rule, opp.Protocol, now) {
				continue
			}

			fired = append(fired, e.store.AddAlert(NewAlert{
				Type:     TypeYield,
				Title:    "High Yield Opportunity",
				Message:  fmt.Sprintf("%s offering %s%% APY.", opp.Protocol, formatNumber(opp.APY)),
				Severity: SeverityInfo,
				Active:   true,
				Data: Data{
					Protocol: opp.Protocol,
					APY:      float(opp.APY),
					MinAPY:   float(minAPY),
				},
			}))
		}
	}

	return fired
}

// shouldTrigger applies the optional per rule and subject cooldown.
func (e *Engine) shouldTrigger(rule AlertRule, subject string, now time.Time) bool {
	cooldown := rule.Conditions.Duration("cooldown", 0)
	if cooldown <= 0 {
		return true
	}

	key := rule.ID + "/" + subject

	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastFired[key]; ok && !now.After(last.Add(cooldown)) {
		return false
	}
	e.lastFired[key] = now
	return true
}

// evaluateCondition compares value against threshold with operator,
// falling back to def when the rule does not name one.
func evaluateCondition(operator, def string, value, threshold float64) bool {
	if operator == "" {
		operator = def
	}

	switch operator {
	case "gt":
		return value > threshold
	case "gte":
		return value >= threshold
	case "lt":
		return value < threshold
	case "lte":
		return value <= threshold
	case "eq":
		return value == threshold
	case "ne":
		return value != threshold
	default:
		return false
	}
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).Round(2).String()
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
