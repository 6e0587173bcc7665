package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
)

var (
	ErrNotConfigured = errors.New("webhook url not configured")
	ErrQueueFull     = errors.New("webhook queue full")
)

type Config struct {
	URL            string
	Secret         string
	InstallationID string
	MaxAttempts    int
	RetryBase      time.Duration
	PollInterval   time.Duration
	QueueSize      int
	Timeout        time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		RetryBase:    time.Second,
		PollInterval: time.Second,
		QueueSize:    100,
		Timeout:      10 * time.Second,
	}
}

// Notifier delivers alert notifications to an external endpoint as
// signed JSON POSTs. Notify only enqueues; Run performs the delivery
// and retries failed attempts with exponential backoff.
type Notifier struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	queue   chan *delivery
	mu      sync.Mutex
	pending []*delivery

	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

var _ alert.HostNotifier = (*Notifier)(nil)

func NewNotifier(cfg Config, logger *slog.Logger) *Notifier {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = def.RetryBase
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		queue:  make(chan *delivery, cfg.QueueSize),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

// Permission is granted whenever an endpoint is configured. There is
// no user to prompt on this channel.
func (n *Notifier) Permission() alert.Permission {
	if n.cfg.URL == "" {
		return alert.PermissionDenied
	}
	return alert.PermissionGranted
}

func (n *Notifier) RequestPermission(ctx context.Context) (alert.Permission, error) {
	return n.Permission(), nil
}

func (n *Notifier) Notify(title, body string) error {
	if n.cfg.URL == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(EventPayload{
		Type:           EventNotification,
		InstallationID: n.cfg.InstallationID,
		Title:          title,
		Body:           body,
		Timestamp:      n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	select {
	case n.queue <- &delivery{id: uuid.NewString(), payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.cfg.PollInterval)
	defer ticker.Stop()

	n.logger.Info("webhook worker started")

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("webhook worker stopped")
			return
		case <-n.stopCh:
			n.logger.Info("webhook worker stopped")
			return
		case d := <-n.queue:
			n.attempt(ctx, d)
		case <-ticker.C:
			n.processRetries(ctx)
		}
	}
}

func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopCh)
	})
}

// Pending returns the number of deliveries waiting for a retry.
func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

func (n *Notifier) processRetries(ctx context.Context) {
	now := n.now()

	n.mu.Lock()
	var due []*delivery
	kept := n.pending[:0]
	for _, d := range n.pending {
		if d.nextRetry.After(now) {
			kept = append(kept, d)
			continue
		}
		due = append(due, d)
	}
	n.pending = kept
	n.mu.Unlock()

	for _, d := range due {
		n.attempt(ctx, d)
	}
}

func (n *Notifier) attempt(ctx context.Context, d *delivery) {
	d.attempts++

	err := n.send(ctx, d)
	if err == nil {
		n.logger.Info("webhook delivered", "delivery_id", d.id, "attempts", d.attempts)
		return
	}

	var statusErr *statusError
	permanent := errors.As(err, &statusErr) && !statusErr.temporary()

	if permanent || d.attempts >= n.cfg.MaxAttempts || ctx.Err() != nil {
		n.logger.Warn("webhook delivery failed",
			"delivery_id", d.id,
			"attempts", d.attempts,
			"error", err,
		)
		return
	}

	delay := time.Duration(1<<(d.attempts-1)) * n.cfg.RetryBase
	d.nextRetry = n.now().Add(delay)

	n.mu.Lock()
	n.pending = append(n.pending, d)
	n.mu.Unlock()

	n.logger.Info("webhook delivery scheduled for retry",
		"delivery_id", d.id,
		"attempts", d.attempts,
		"next_retry", d.nextRetry,
	)
}

func (n *Notifier) send(ctx context.Context, d *delivery) error {
	timestamp := n.now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(d.payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, Sign(n.cfg.Secret, timestamp, d.payload))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderEvent, EventNotification)
	req.Header.Set(HeaderDelivery, d.id)
	req.Header.Set("User-Agent", "Defiwatch-Webhook/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode}
	}

	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.code)
}

func (e *statusError) temporary() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}
