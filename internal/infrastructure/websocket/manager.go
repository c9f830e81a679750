package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradeboard/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client represents a WebSocket connection client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Manager manages all active WebSocket connections. A user may hold
// several connections; each connection subscribes to channels on its own.
type Manager struct {
	clients    map[string]map[*Client]bool
	channels   map[string]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	// CanSubscribe guards channel subscriptions. Nil allows everything.
	CanSubscribe func(userID, channelID string) bool
}

// NewManager creates a new WebSocket connection manager
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]bool),
		channels:   make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.addClient(client)
				logger.Debug("WebSocket: client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.removeClient(client)
				logger.Debug("WebSocket: client unregistered: %s", client.UserID)

			case <-ctx.Done():
				m.closeAll()
				return
			}
		}
	}()
}

func (m *Manager) addClient(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.clients[client.UserID] == nil {
		m.clients[client.UserID] = make(map[*Client]bool)
	}
	m.clients[client.UserID][client] = true
}

func (m *Manager) removeClient(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	conns, ok := m.clients[client.UserID]
	if !ok || !conns[client] {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
	}
	for channelID, subscribers := range m.channels {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(m.channels, channelID)
		}
	}
	close(client.Send)
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, conns := range m.clients {
		for client := range conns {
			close(client.Send)
		}
	}
	m.clients = make(map[string]map[*Client]bool)
	m.channels = make(map[string]map[*Client]bool)
}

// Subscribe adds client to channelID's fan-out.
func (m *Manager) Subscribe(client *Client, channelID string) bool {
	if m.CanSubscribe != nil && !m.CanSubscribe(client.UserID, channelID) {
		return false
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.clients[client.UserID][client] {
		return false
	}
	if m.channels[channelID] == nil {
		m.channels[channelID] = make(map[*Client]bool)
	}
	m.channels[channelID][client] = true
	return true
}

func (m *Manager) Unsubscribe(client *Client, channelID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if subscribers, ok := m.channels[channelID]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(m.channels, channelID)
		}
	}
}

// SendToUser sends a message to every connection of a specific user
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for client := range m.clients[userID] {
		m.deliver(client, message)
	}
}

// BroadcastToChannel sends a message to every subscriber of channelID.
func (m *Manager) BroadcastToChannel(channelID string, message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for client := range m.channels[channelID] {
		m.deliver(client, message)
	}
}

// deliver never blocks; slow clients miss events and can resync through
// the board endpoints. Callers hold m.mutex.
func (m *Manager) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		logger.Warn("WebSocket: client %s send buffer full, dropping event", client.UserID)
	}
}

func (m *Manager) ConnectedUsers() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error for %s: %v", c.UserID, err)
			}
			break
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump sends messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error for %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
