package websockets

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	STATUS_UNAUTHENTICATED = iota
	STATUS_PENDING
	STATUS_AUTHENTICATED
	STATUS_CLOSED
)

type Hub struct {
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	clients    map[string]*Client
	mutex      sync.RWMutex
}

func (h *Hub) run(m *Manager) {
	for {
		select {
		case client := <-h.register:
			m.registerClient(client)

		case client := <-h.unregister:
			func() {
				defer func() {
					if r := recover(); r != nil {
						_ = r
					}
				}()
				close(client.send)
			}()
			m.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message, m)
		}
	}
}

func (m *Manager) unregisterClient(client *Client) {
	log := m.log.Function("unregisterClient")

	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	delete(m.hub.clients, client.ID)

	log.Info("client unregistered", "clientID", client.ID, "userID", client.UserID)
}

func (m *Manager) registerClient(client *Client) {
	log := m.log.Function("registerClient")

	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	m.hub.clients[client.ID] = client

	log.Info("client registered", "clientID", client.ID, "status", client.Status)
}

// broadcastMessage delivers to every authenticated client regardless of its
// event/library filters, used only for system-wide notices.
func (h *Hub) broadcastMessage(message Message, m *Manager) {
	log := m.log.Function("broadcastMessage")

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sentCount := 0
	for clientID, client := range h.clients {
		if client.Status != STATUS_AUTHENTICATED {
			continue
		}

		select {
		case client.send <- message:
			sentCount++
		default:
			go retrySend(m, client, clientID, message)
		}
	}

	log.Info("broadcast complete", "messageID", message.ID, "sentTo", sentCount, "totalClients", len(h.clients))
}

// dispatchEvent delivers message only to clients subscribed to eventType,
// and (when libraryID is non-nil) only to clients that have joined that
// library or that have no library filter set at all.
func (h *Hub) dispatchEvent(eventType string, libraryID *uuid.UUID, message Message, m *Manager) {
	log := m.log.Function("dispatchEvent")

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sentCount := 0
	for clientID, client := range h.clients {
		if client.Status != STATUS_AUTHENTICATED {
			continue
		}
		if !client.wants(eventType, libraryID) {
			continue
		}

		select {
		case client.send <- message:
			sentCount++
		default:
			go retrySend(m, client, clientID, message)
		}
	}

	log.Info("event dispatched", "eventType", eventType, "messageID", message.ID, "sentTo", sentCount)
}

func retrySend(m *Manager, c *Client, clientID string, msg Message) {
	log := m.log.Function("retrySend")
	select {
	case c.send <- msg:
		log.Info("message sent after retry", "clientID", clientID)
	case <-time.After(5 * time.Second):
		log.Warn("client too slow, disconnecting", "clientID", clientID)
		m.hub.unregister <- c
	}
}

func (m *Manager) promoteClientToAuthenticated(client *Client) {
	log := m.log.Function("promoteClientToAuthenticated")

	if client.Status != STATUS_AUTHENTICATED {
		log.Warn("attempted to promote non-authenticated client", "clientID", client.ID)
		return
	}

	log.Info("client promoted to authenticated", "clientID", client.ID, "userID", client.UserID)
}

func (m *Manager) SendMessageToUser(userID uuid.UUID, message Message) {
	log := m.log.Function("SendMessageToUser")

	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()

	sentCount := 0
	for clientID, client := range m.hub.clients {
		if client.Status != STATUS_AUTHENTICATED || client.UserID != userID {
			continue
		}
		select {
		case client.send <- message:
			sentCount++
		default:
			go retrySend(m, client, clientID, message)
		}
	}

	log.Info("message sent to user", "userID", userID, "messageID", message.ID, "sentTo", sentCount)
}
