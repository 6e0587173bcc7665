package alert

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ChangeKind string

const (
	ChangeAlertAdded     ChangeKind = "alert.created"
	ChangeAlertDismissed ChangeKind = "alert.dismissed"
	ChangeAlertRead      ChangeKind = "alert.read"
	ChangeAllRead        ChangeKind = "alerts.read_all"
	ChangeRules          ChangeKind = "rules.changed"
	ChangeRestored       ChangeKind = "state.restored"
)

// Change describes a committed store mutation.
type Change struct {
	Kind        ChangeKind `json:"kind"`
	Alert       *Alert     `json:"alert,omitempty"`
	AlertID     string     `json:"alertId,omitempty"`
	RuleID      string     `json:"ruleId,omitempty"`
	UnreadCount int        `json:"unreadCount"`
}

// Store owns the alert and rule collections. Every mutation is
// serialized on mu; listeners and the host notifier run after the lock
// is released so they can read the store back.
type Store struct {
	mu         sync.RWMutex
	alerts     []Alert
	rules      []AlertRule
	unread     int
	permission Permission
	listeners  []func(Change)

	notifier HostNotifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewStore(notifier HostNotifier, logger *slog.Logger) *Store {
	return &Store{
		alerts:     []Alert{},
		rules:      []AlertRule{},
		permission: PermissionDefault,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Subscribe registers fn to be called after every committed mutation.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listeners := make([]func(Change), len(s.listeners), len(s.listeners)+1)
	copy(listeners, s.listeners)
	s.listeners = append(listeners, fn)
}

func (s *Store) SetPermission(p Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = p
}

func (s *Store) Permission() Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permission
}

// AddAlert records a new alert at the head of the list and notifies the
// host when permission has been granted. It never fails.
func (s *Store) AddAlert(in NewAlert) Alert {
	s.mu.Lock()

	id := s.newID()
	for s.indexOfAlert(id) >= 0 {
		id = s.newID()
	}

	a := Alert{
		ID:          id,
		Type:        in.Type,
		Title:       in.Title,
		Message:     in.Message,
		Severity:    in.Severity,
		Triggered:   in.Triggered,
		CreatedAt:   s.now().UnixMilli(),
		TriggeredAt: in.TriggeredAt,
		Active:      in.Active,
		Data:        in.Data,
	}

	alerts := make([]Alert, 0, len(s.alerts)+1)
	alerts = append(alerts, a)
	s.alerts = append(alerts, s.alerts...)
	if !a.Triggered {
		s.unread++
	}

	change := Change{Kind: ChangeAlertAdded, Alert: &a, AlertID: a.ID, UnreadCount: s.unread}
	listeners := s.listeners
	granted := s.permission == PermissionGranted
	s.mu.Unlock()

	s.publish(listeners, change)
	if granted && s.notifier != nil {
		s.notify(a)
	}

	return a
}

// DismissAlert removes the alert. Unknown ids are ignored.
func (s *Store) DismissAlert(id string) {
	s.dismiss(id)
}

func (s *Store) dismiss(id string) bool {
	s.mu.Lock()

	i := s.indexOfAlert(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}

	if !s.alerts[i].Triggered {
		s.unread = max(0, s.unread-1)
	}
	alerts := make([]Alert, 0, len(s.alerts)-1)
	alerts = append(alerts, s.alerts[:i]...)
	s.alerts = append(alerts, s.alerts[i+1:]...)

	change := Change{Kind: ChangeAlertDismissed, AlertID: id, UnreadCount: s.unread}
	listeners := s.listeners
	s.mu.Unlock()

	s.publish(listeners, change)
	return true
}

// MarkAsRead flags an unread alert as read. Unknown or already read
// alerts are ignored.
func (s *Store) MarkAsRead(id string) {
	s.mu.Lock()

	i := s.indexOfAlert(id)
	if i < 0 || s.alerts[i].Triggered {
		s.mu.Unlock()
		return
	}

	s.alerts[i].Triggered = true
	s.unread = max(0, s.unread-1)

	change := Change{Kind: ChangeAlertRead, AlertID: id, UnreadCount: s.unread}
	listeners := s.listeners
	s.mu.Unlock()

	s.publish(listeners, change)
}

func (s *Store) MarkAllAsRead() {
	s.mu.Lock()

	for i := range s.alerts {
		s.alerts[i].Triggered = true
	}
	s.unread = 0

	change := Change{Kind: ChangeAllRead}
	listeners := s.listeners
	s.mu.Unlock()

	s.publish(listeners, change)
}

// Alerts returns a copy of the alert list, newest first.
func (s *Store) Alerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

func (s *Store) Alert(id string) (Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOfAlert(id)
	if i < 0 {
		return Alert{}, false
	}
	return s.alerts[i], true
}

func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// Snapshot returns a deep enough copy of the store for persistence.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		Alerts:     make([]Alert, len(s.alerts)),
		AlertRules: make([]AlertRule, len(s.rules)),
	}
	copy(state.Alerts, s.alerts)
	for i, r := range s.rules {
		r.Conditions = r.Conditions.clone()
		state.AlertRules[i] = r
	}
	return state
}

// Restore replaces the store content with a persisted state and derives
// the unread count from it.
func (s *Store) Restore(state State) {
	s.mu.Lock()

	s.alerts = make([]Alert, len(state.Alerts))
	copy(s.alerts, state.Alerts)

	s.rules = make([]AlertRule, len(state.AlertRules))
	for i, r := range state.AlertRules {
		r.Conditions = r.Conditions.clone()
		s.rules[i] = r
	}

	s.unread = 0
	for _, a := range s.alerts {
		if !a.Triggered {
			s.unread++
		}
	}

	change := Change{Kind: ChangeRestored, UnreadCount: s.unread}
	listeners := s.listeners
	s.mu.Unlock()

	s.publish(listeners, change)
}

func (s *Store) indexOfAlert(id string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) publish(listeners []func(Change), change Change) {
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("store listener panicked", "kind", change.Kind, "panic", r)
				}
			}()
			fn(change)
		}()
	}
}

func (s *Store) notify(a Alert) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("host notifier panicked", "alert_id", a.ID, "panic", r)
		}
	}()

	if err := s.notifier.Notify(a.Title, a.Message); err != nil {
		s.logger.Warn("host notification failed",
			"alert_id", a.ID,
			"error", err,
		)
	}
}
