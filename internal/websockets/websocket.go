package websockets

import (
	"sync"
	"time"

	"github.com/gamedjinn/sync/config"
	"github.com/gamedjinn/sync/internal/events"
	"github.com/gamedjinn/sync/internal/logger"
	"github.com/gamedjinn/sync/internal/types"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Inbound (client->server) message types.
const (
	MESSAGE_TYPE_SUBSCRIBE      = "subscribe"
	MESSAGE_TYPE_UNSUBSCRIBE    = "unsubscribe"
	MESSAGE_TYPE_JOIN_LIBRARY   = "join_library"
	MESSAGE_TYPE_LEAVE_LIBRARY  = "leave_library"
	MESSAGE_TYPE_PING           = "ping"
	MESSAGE_TYPE_AUTH_RESPONSE  = "auth_response"
	MESSAGE_TYPE_AI_CHAT        = "ai_chat_message"
)

// Outbound (server->client) message types, the event catalogue of spec §4.8.
const (
	EVENT_CONNECTION_ESTABLISHED = "connection_established"
	EVENT_PONG                   = "pong"
	EVENT_SYNC_STARTED           = "sync_started"
	EVENT_SYNC_PROGRESS          = "sync_progress"
	EVENT_SYNC_COMPLETED         = "sync_completed"
	EVENT_SYNC_FAILED            = "sync_failed"
	EVENT_SYNC_RATE_LIMITED      = "sync_rate_limited"
	EVENT_GAME_ADDED             = "game_added"
	EVENT_GAME_UPDATED           = "game_updated"
	EVENT_ACHIEVEMENT_UNLOCKED   = "achievement_unlocked"
	EVENT_SYSTEM_NOTIFICATION    = "system_notification"
	EVENT_RATE_LIMIT_WARNING     = "rate_limit_warning"
	EVENT_CONNECTION_ERROR       = "connection_error"
	EVENT_AUTH_REQUEST           = "auth_request"
	EVENT_AUTH_SUCCESS           = "auth_success"
	EVENT_AUTH_FAILURE           = "auth_failure"
)

const (
	PING_INTERVAL     = 30 * time.Second
	PONG_TIMEOUT      = 60 * time.Second
	WRITE_TIMEOUT     = 10 * time.Second
	MAX_MESSAGE_SIZE  = 1024 * 1024 // 1 MB
	SEND_CHANNEL_SIZE = 64
)

// Message is the wire envelope of spec §6.2: {type, data, timestamp, id}.
type Message struct {
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func newMessage(msgType string, data map[string]any) Message {
	return Message{ID: uuid.New().String(), Type: msgType, Data: data, Timestamp: time.Now()}
}

// Client is one live websocket connection. events/libraries are the
// subscription filters set via `subscribe`/`join_library`; an empty set
// means "no filter" (deliver every event of that kind).
type Client struct {
	ID         string
	UserID     uuid.UUID
	Connection *websocket.Conn
	Manager    *Manager
	Status     int
	send       chan Message

	mu        sync.Mutex
	events    map[string]bool
	libraries map[uuid.UUID]bool
}

func (c *Client) wants(eventType string, libraryID *uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.events) > 0 && !c.events[eventType] {
		return false
	}
	if libraryID != nil && len(c.libraries) > 0 && !c.libraries[*libraryID] {
		return false
	}
	return true
}

type Manager struct {
	hub         *Hub
	config      config.Config
	log         logger.Logger
	eventBus    *events.EventBus
	authEnabled bool
}

// New wires a websocket Manager over RB's backing EventBus. Per spec §6.3,
// auth is enabled only when both ADMIN_EMAIL and ADMIN_PASSWORD are
// configured; otherwise every connection is auto-authenticated on open.
func New(eventBus *events.EventBus, cfg config.Config) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub: &Hub{
			broadcast:  make(chan Message),
			register:   make(chan *Client),
			unregister: make(chan *Client),
			clients:    make(map[string]*Client),
		},
		config:      cfg,
		log:         log,
		eventBus:    eventBus,
		authEnabled: cfg.AdminEmail != "" && cfg.AdminPassword != "",
	}

	log.Function("New").Info("starting websocket hub", "authEnabled", manager.authEnabled)
	go manager.hub.run(manager)

	go manager.subscribeToProgressEvents()

	return manager, nil
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")
	clientID := uuid.New().String()

	client := &Client{
		ID:         clientID,
		Connection: c,
		Manager:    m,
		Status:     STATUS_UNAUTHENTICATED,
		send:       make(chan Message, SEND_CHANNEL_SIZE),
	}

	m.hub.register <- client
	defer func() {
		log.Info("client disconnected", "clientID", clientID)
		m.hub.unregister <- client
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err, "clientID", clientID)
		}
	}()

	if m.authEnabled {
		if err := client.sendAuthRequest(); err != nil {
			return
		}
		client.startAuthTimeout()
	} else {
		client.Status = STATUS_AUTHENTICATED
		m.promoteClientToAuthenticated(client)
		client.send <- newMessage(EVENT_CONNECTION_ESTABLISHED, map[string]any{"clientId": clientID})
	}

	go client.readPump()
	client.writePump()
}

func (c *Client) readPump() {
	log := c.Manager.log.Function("readPump")
	defer func() {
		c.Manager.hub.unregister <- c
		_ = c.Connection.Close()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
		log.Er("failed to set read deadline", err, "clientID", c.ID)
	}
	c.Connection.SetPongHandler(func(string) error {
		return c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT))
	})

	for {
		var message Message
		if err := c.Connection.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Info("unexpected close", "clientID", c.ID, "error", err)
			}
			break
		}

		message.ID = uuid.New().String()
		message.Timestamp = time.Now()
		c.routeMessage(message)
	}
}

func (c *Client) routeMessage(message Message) {
	log := c.Manager.log.Function("routeMessage")

	if message.Type == MESSAGE_TYPE_AUTH_RESPONSE {
		c.handleAuthResponse(message)
		return
	}

	if c.Status != STATUS_AUTHENTICATED {
		c.handleUnauthenticatedMessage(message)
		return
	}

	switch message.Type {
	case MESSAGE_TYPE_PING:
		c.send <- newMessage(EVENT_PONG, nil)

	case MESSAGE_TYPE_SUBSCRIBE:
		c.handleSubscribe(message, true)

	case MESSAGE_TYPE_UNSUBSCRIBE:
		c.handleSubscribe(message, false)

	case MESSAGE_TYPE_JOIN_LIBRARY:
		c.handleLibraryMembership(message, true)

	case MESSAGE_TYPE_LEAVE_LIBRARY:
		c.handleLibraryMembership(message, false)

	case MESSAGE_TYPE_AI_CHAT:
		// Opaque to this core; the AI collaborator surface consumes it out of
		// process. Acknowledged so the client doesn't retry.
		log.Info("ai_chat_message received, not handled by this core", "clientID", c.ID)

	default:
		log.Warn("unknown message type", "type", message.Type, "clientID", c.ID)
	}
}

// handleSubscribe applies `subscribe({events[], filters{libraryId?}})`. An
// empty events list clears the filter back to "receive everything".
func (c *Client) handleSubscribe(message Message, subscribe bool) {
	eventsRaw, _ := message.Data["events"].([]any)

	c.mu.Lock()
	if c.events == nil {
		c.events = make(map[string]bool)
	}
	for _, e := range eventsRaw {
		name, ok := e.(string)
		if !ok {
			continue
		}
		if subscribe {
			c.events[name] = true
		} else {
			delete(c.events, name)
		}
	}

	if filters, ok := message.Data["filters"].(map[string]any); ok {
		if libraryIDRaw, ok := filters["libraryId"].(string); ok {
			if libraryID, err := uuid.Parse(libraryIDRaw); err == nil {
				if c.libraries == nil {
					c.libraries = make(map[uuid.UUID]bool)
				}
				if subscribe {
					c.libraries[libraryID] = true
				} else {
					delete(c.libraries, libraryID)
				}
			}
		}
	}
	c.mu.Unlock()
}

func (c *Client) handleLibraryMembership(message Message, join bool) {
	log := c.Manager.log.Function("handleLibraryMembership")

	libraryIDRaw, ok := message.Data["libraryId"].(string)
	if !ok {
		log.Warn("join_library/leave_library missing libraryId", "clientID", c.ID)
		return
	}
	libraryID, err := uuid.Parse(libraryIDRaw)
	if err != nil {
		log.Warn("invalid libraryId", "clientID", c.ID, "libraryId", libraryIDRaw)
		return
	}

	c.mu.Lock()
	if c.libraries == nil {
		c.libraries = make(map[uuid.UUID]bool)
	}
	if join {
		c.libraries[libraryID] = true
	} else {
		delete(c.libraries, libraryID)
	}
	c.mu.Unlock()
}

func (c *Client) writePump() {
	log := c.Manager.log.Function("writePump")

	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		_ = c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.ID)
			}
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Connection.WriteJSON(message); err != nil {
				log.Er("write error", err, "clientID", c.ID)
				return
			}

		case <-ticker.C:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for ping", err, "clientID", c.ID)
			}
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subscribeToProgressEvents fans PT's ProgressEvents (published to
// SyncProgressChannel by progressTracker.service.go) out to subscribed
// clients, translating PT's lifecycle status into the specific wire event
// type the event catalogue names (sync_started/sync_progress/...).
func (m *Manager) subscribeToProgressEvents() {
	log := m.log.Function("subscribeToProgressEvents")

	syncProgressChannel := events.Channel("sync:progress")
	err := m.eventBus.Subscribe(syncProgressChannel, func(event events.Event) error {
		libraryIDRaw, _ := event.Data["libraryId"].(string)
		libraryID, parseErr := uuid.Parse(libraryIDRaw)
		if parseErr != nil {
			log.Warn("progress event missing valid libraryId", "eventID", event.ID)
			return nil
		}

		status, _ := event.Data["status"].(string)
		m.hub.dispatchEvent(wireEventForStatus(status), &libraryID, newMessage(wireEventForStatus(status), event.Data), m)
		return nil
	})
	if err != nil {
		log.Er("failed to subscribe to progress events", err)
	}
}

func wireEventForStatus(status string) string {
	switch types.SyncEventStatus(status) {
	case types.SyncEventStarting:
		return EVENT_SYNC_STARTED
	case types.SyncEventCompleted:
		return EVENT_SYNC_COMPLETED
	case types.SyncEventFailed:
		return EVENT_SYNC_FAILED
	case types.SyncEventRateLimited:
		return EVENT_SYNC_RATE_LIMITED
	default:
		return EVENT_SYNC_PROGRESS
	}
}

// PublishCatalogEvent lets callers outside this package (CS/SW) fan a
// game_added/game_updated/achievement_unlocked notice out to subscribers of
// a given library without reaching into the Hub directly.
func (m *Manager) PublishCatalogEvent(eventType string, libraryID uuid.UUID, data map[string]any) {
	m.hub.dispatchEvent(eventType, &libraryID, newMessage(eventType, data), m)
}

// BroadcastSystemNotification fans a system_notification/rate_limit_warning
// to every subscribed client regardless of library.
func (m *Manager) BroadcastSystemNotification(eventType string, data map[string]any) {
	m.hub.dispatchEvent(eventType, nil, newMessage(eventType, data), m)
}
