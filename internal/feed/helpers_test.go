package feed

import (
	"io"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/cache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(store cache.Store) *Client {
	return NewClient(ClientConfig{
		Timeout:    2 * time.Second,
		RetryCount: 2,
		Backoff:    time.Millisecond,
		CacheTTL:   time.Minute,
	}, store, discardLogger())
}

func float(v float64) *float64 {
	return &v
}
