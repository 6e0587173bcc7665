package webhook

import "time"

const (
	HeaderSignature = "X-Defiwatch-Signature"
	HeaderTimestamp = "X-Defiwatch-Timestamp"
	HeaderEvent     = "X-Defiwatch-Event"
	HeaderDelivery  = "X-Defiwatch-Delivery"

	EventNotification = "alert.notification"
)

// EventPayload is the JSON body of every delivery.
type EventPayload struct {
	Type           string    `json:"type"`
	InstallationID string    `json:"installationId"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Timestamp      time.Time `json:"timestamp"`
}

type delivery struct {
	id        string
	payload   []byte
	attempts  int
	nextRetry time.Time
}
