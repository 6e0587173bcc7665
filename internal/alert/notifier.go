package alert

import (
	"context"
	"fmt"
	"log/slog"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// HostNotifier is the host environment's notification capability.
type HostNotifier interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Notify(title, body string) error
}

// MultiNotifier fans a notification out to several channels. It is
// granted as soon as one channel is granted.
type MultiNotifier struct {
	channels []HostNotifier
	logger   *slog.Logger
}

func NewMultiNotifier(logger *slog.Logger, channels ...HostNotifier) *MultiNotifier {
	return &MultiNotifier{
		channels: channels,
		logger:   logger,
	}
}

func (n *MultiNotifier) Permission() Permission {
	if len(n.channels) == 0 {
		return PermissionDenied
	}

	result := PermissionDenied
	for _, ch := range n.channels {
		switch ch.Permission() {
		case PermissionGranted:
			return PermissionGranted
		case PermissionDefault:
			result = PermissionDefault
		}
	}
	return result
}

func (n *MultiNotifier) RequestPermission(ctx context.Context) (Permission, error) {
	for _, ch := range n.channels {
		if ch.Permission() != PermissionDefault {
			continue
		}
		if _, err := ch.RequestPermission(ctx); err != nil {
			n.logger.Warn("notification permission request failed", "error", err)
		}
	}
	return n.Permission(), nil
}

func (n *MultiNotifier) Notify(title, body string) error {
	var failed int
	var sent int

	for _, ch := range n.channels {
		if ch.Permission() != PermissionGranted {
			continue
		}
		sent++
		if err := ch.Notify(title, body); err != nil {
			n.logger.Error("failed to send notification",
				"title", title,
				"error", err,
			)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to send %d/%d notifications", failed, sent)
	}

	return nil
}
