package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var errUnknownFailure = errors.New("unknown error")

type ManagerConfig struct {
	SweepInterval   time.Duration
	Retention       time.Duration
	PersistInterval time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		SweepInterval:   time.Minute,
		Retention:       24 * time.Hour,
		PersistInterval: 5 * time.Second,
	}
}

// Manager owns the alert lifecycle of one session: it loads and seeds
// state, asks for notification permission, sweeps old read alerts and
// flushes the store to the repository.
type Manager struct {
	store    *Store
	engine   *Engine
	notifier HostNotifier
	repo     StateRepository
	logger   *slog.Logger
	cfg      ManagerConfig
	now      func() time.Time

	dirty    atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager wires a manager. repo may be nil, in which case state lives
// only for the session.
func NewManager(store *Store, engine *Engine, notifier HostNotifier, repo StateRepository, logger *slog.Logger, cfg ManagerConfig) *Manager {
	def := DefaultManagerConfig()
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = def.PersistInterval
	}

	m := &Manager{
		store:    store,
		engine:   engine,
		notifier: notifier,
		repo:     repo,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	store.Subscribe(func(Change) {
		m.dirty.Store(true)
	})

	return m
}

// Init restores persisted state, seeding the default rules when nothing
// was persisted yet, and requests notification permission once.
func (m *Manager) Init(ctx context.Context) error {
	if m.repo == nil {
		m.store.SeedDefaults()
	} else {
		state, err := m.repo.Load(ctx)
		switch {
		case errors.Is(err, ErrNoState):
			seeded := m.store.SeedDefaults()
			if err := m.repo.Save(ctx, m.store.Snapshot()); err != nil {
				return fmt.Errorf("save seeded state: %w", err)
			}
			m.logger.Info("alert state initialized", "default_rules", seeded)
		case err != nil:
			return fmt.Errorf("load state: %w", err)
		default:
			m.store.Restore(state)
			m.logger.Info("alert state restored",
				"alerts", len(state.Alerts),
				"rules", len(state.AlertRules),
				"unread", m.store.UnreadCount(),
			)
		}
	}
	m.dirty.Store(false)

	m.store.SetPermission(m.resolvePermission(ctx))
	return nil
}

func (m *Manager) resolvePermission(ctx context.Context) (p Permission) {
	if m.notifier == nil {
		return PermissionDenied
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("notification permission check panicked", "panic", r)
			p = PermissionDefault
		}
	}()

	p = m.notifier.Permission()
	if p != PermissionDefault {
		return p
	}

	granted, err := m.notifier.RequestPermission(ctx)
	if err != nil {
		m.logger.Warn("notification permission request failed", "error", err)
		return PermissionDefault
	}

	m.logger.Info("notification permission resolved", "permission", granted)
	return granted
}

// Start runs the sweep and persistence loop until ctx is cancelled or
// Stop is called. The store is flushed one last time on exit.
func (m *Manager) Start(ctx context.Context) {
	defer close(m.done)

	sweep := time.NewTicker(m.cfg.SweepInterval)
	defer sweep.Stop()
	persist := time.NewTicker(m.cfg.PersistInterval)
	defer persist.Stop()

	m.logger.Info("alert manager started",
		"sweep_interval", m.cfg.SweepInterval,
		"retention", m.cfg.Retention,
	)

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-m.stop:
			m.shutdown()
			return
		case <-sweep.C:
			m.Sweep()
		case <-persist.C:
			if err := m.Flush(ctx); err != nil {
				m.logger.Error("failed to persist alert state", "error", err)
			}
		}
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// Done is closed once Start has returned.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Flush(ctx); err != nil {
		m.logger.Error("failed to persist alert state on shutdown", "error", err)
	}
	m.logger.Info("alert manager stopped")
}

// Sweep dismisses read alerts older than the retention. Unread alerts
// are kept regardless of age.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.Retention).UnixMilli()

	removed := 0
	for _, a := range m.store.Alerts() {
		if !a.Triggered || a.CreatedAt >= cutoff {
			continue
		}
		if m.store.dismiss(a.ID) {
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("expired alerts dismissed", "count", removed)
	}
	return removed
}

// Flush persists the store when it changed since the last flush.
func (m *Manager) Flush(ctx context.Context) error {
	if m.repo == nil || !m.dirty.Swap(false) {
		return nil
	}

	if err := m.repo.Save(ctx, m.store.Snapshot()); err != nil {
		m.dirty.Store(true)
		return err
	}
	return nil
}

func (m *Manager) CheckPrices(prices map[string]float64) []Alert {
	return m.engine.EvaluatePrices(prices)
}

func (m *Manager) CheckPortfolio(value float64) []Alert {
	return m.engine.EvaluatePortfolio(value)
}

func (m *Manager) CheckGas(gasPrices map[string]float64) []Alert {
	return m.engine.EvaluateGas(gasPrices)
}

func (m *Manager) CheckYields(opportunities []YieldOpportunity) []Alert {
	return m.engine.EvaluateYields(opportunities)
}

// ReportFailure turns a collaborator failure into a critical security
// alert. A nil err is reported as an unknown error.
func (m *Manager) ReportFailure(source string, err error) Alert {
	if err == nil {
		err = errUnknownFailure
	}
	m.logger.Warn("data source failed", "source", source, "error", err)

	return m.store.AddAlert(NewAlert{
		Type:     TypeSecurity,
		Title:    "Data Loading Error",
		Message:  fmt.Sprintf("Failed to load %s data: %v", source, err),
		Severity: SeverityCritical,
		Active:   true,
		Data: Data{
			Error: err.Error(),
			Extra: map[string]interface{}{"source": source},
		},
	})
}

func (m *Manager) Store() *Store {
	return m.store
}

func (m *Manager) Engine() *Engine {
	return m.engine
}

func (m *Manager) Alerts() []Alert {
	return m.store.Alerts()
}

func (m *Manager) Rules() []AlertRule {
	return m.store.Rules()
}

func (m *Manager) UnreadCount() int {
	return m.store.UnreadCount()
}
