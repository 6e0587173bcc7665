package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/defiwatch/internal/alert"
)

// Hub fans events out to connected dashboard clients. It also serves as
// a host notification channel: notifications become "notification"
// events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	notifications bool
	logger        *slog.Logger
	now           func() time.Time
}

var _ alert.HostNotifier = (*Hub)(nil)

func NewHub(logger *slog.Logger, notifications bool) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		broadcast:     make(chan Event, 256),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Attach forwards every committed store mutation to the clients.
func (h *Hub) Attach(store *alert.Store) {
	store.Subscribe(func(c alert.Change) {
		h.Broadcast(eventTypeFor(c.Kind), c)
	})
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.logger.Debug("websocket client connected", "clients", len(h.clients))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Debug("websocket client disconnected", "clients", len(h.clients))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) deliver(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal websocket event", "type", event.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.wants(event.Type) {
			continue
		}
		select {
		case client.send <- message:
		default:
			// slow consumer
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) Broadcast(eventType EventType, data interface{}) {
	event := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: h.now(),
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("websocket broadcast dropped", "type", eventType)
	}
}

func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) Permission() alert.Permission {
	if !h.notifications {
		return alert.PermissionDenied
	}
	return alert.PermissionGranted
}

func (h *Hub) RequestPermission(ctx context.Context) (alert.Permission, error) {
	return h.Permission(), nil
}

// Notify broadcasts a notification event. It succeeds with no clients
// connected.
func (h *Hub) Notify(title, body string) error {
	h.Broadcast(EventNotification, NotificationData{Title: title, Body: body})
	return nil
}
