package ws

import (
	"time"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
)

type EventType string

const (
	EventAlertCreated   EventType = "alert.created"
	EventAlertDismissed EventType = "alert.dismissed"
	EventAlertRead      EventType = "alert.read"
	EventAllRead        EventType = "alerts.read_all"
	EventRulesChanged   EventType = "rules.changed"
	EventStateRestored  EventType = "state.restored"
	EventNotification   EventType = "notification"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type NotificationData struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func eventTypeFor(kind alert.ChangeKind) EventType {
	return EventType(kind)
}
