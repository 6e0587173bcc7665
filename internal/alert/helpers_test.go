package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeNotifier struct {
	mu        sync.Mutex
	perm      Permission
	onRequest Permission
	requested int
	titles    []string
	err       error
	panics    bool
}

func (f *fakeNotifier) Permission() Permission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perm
}

func (f *fakeNotifier) RequestPermission(ctx context.Context) (Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested++
	f.perm = f.onRequest
	return f.perm, nil
}

func (f *fakeNotifier) Notify(title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("notification backend exploded")
	}
	f.titles = append(f.titles, title)
	return f.err
}

func (f *fakeNotifier) notified() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.titles))
	copy(out, f.titles)
	return out
}

type memRepo struct {
	mu      sync.Mutex
	state   *State
	saves   int
	loadErr error
	saveErr error
}

func (r *memRepo) Load(ctx context.Context) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return State{}, r.loadErr
	}
	if r.state == nil {
		return State{}, ErrNoState
	}
	return *r.state, nil
}

func (r *memRepo) Save(ctx context.Context, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.state = &state
	return nil
}

var errUpstream = errors.New("upstream timeout")

// newTestStore returns a store with a fixed clock and sequential ids.
func newTestStore(notifier HostNotifier) *Store {
	s := NewStore(notifier, discardLogger())
	s.now = func() time.Time { return testNow }

	var seq int
	s.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return s
}

func newTestEngine(s *Store) *Engine {
	e := NewEngine(s, NewPriceHistory(48*time.Hour), discardLogger())
	e.now = func() time.Time { return testNow }
	return e
}

func countUnread(alerts []Alert) int {
	n := 0
	for _, a := range alerts {
		if !a.Triggered {
			n++
		}
	}
	return n
}

func sampleAlert(title string) NewAlert {
	return NewAlert{
		Type:     TypeSecurity,
		Title:    title,
		Message:  title + " message",
		Severity: SeverityWarning,
		Active:   true,
	}
}
