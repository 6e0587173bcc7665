package feed

import (
	"errors"
	"fmt"
)

var (
	ErrProviderUnavailable = errors.New("market data provider unavailable")
	ErrInvalidResponse     = errors.New("invalid response from market data provider")
	ErrNoData              = errors.New("market data provider returned no data")
)

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

func isPermanent(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return !statusErr.Temporary()
	}
	return errors.Is(err, ErrInvalidResponse)
}
