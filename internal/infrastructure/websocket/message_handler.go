package websocket

import (
	"encoding/json"
	"time"

	"tradeboard/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeSubscribed  = "subscribed"
	MessageTypeError       = "error"

	// Gateway events
	EventMessageCreated = "message_created"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	ChannelID string      `json:"channel_id,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func newWSMessage(messageType, channelID string, data interface{}) WSMessage {
	return WSMessage{
		Type:      messageType,
		Data:      data,
		ChannelID: channelID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// HandleClientMessage processes incoming WebSocket messages
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var wsMessage WSMessage

	if err := json.Unmarshal(messageBytes, &wsMessage); err != nil {
		logger.Debug("WebSocket: failed to unmarshal message from client %s: %v", client.UserID, err)
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	switch wsMessage.Type {
	case MessageTypePing:
		m.sendToClient(client, newWSMessage(MessageTypePong, "", map[string]string{"status": "alive"}))

	case MessageTypeSubscribe:
		if wsMessage.ChannelID == "" {
			m.sendErrorToClient(client, "channel_id is required")
			return
		}
		if !m.Subscribe(client, wsMessage.ChannelID) {
			m.sendErrorToClient(client, "Cannot subscribe to this channel")
			return
		}
		m.sendToClient(client, newWSMessage(MessageTypeSubscribed, wsMessage.ChannelID, nil))
		logger.Debug("WebSocket: client %s subscribed to %s", client.UserID, wsMessage.ChannelID)

	case MessageTypeUnsubscribe:
		m.Unsubscribe(client, wsMessage.ChannelID)

	default:
		logger.Debug("WebSocket: unknown message type '%s' from client %s", wsMessage.Type, client.UserID)
		m.sendErrorToClient(client, "Unknown message type")
	}
}

func (m *Manager) sendToClient(client *Client, message WSMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		logger.Error("WebSocket: failed to marshal message for client %s: %v", client.UserID, err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.clients[client.UserID][client] {
		m.deliver(client, messageBytes)
	}
}

func (m *Manager) sendErrorToClient(client *Client, errorMsg string) {
	m.sendToClient(client, newWSMessage(MessageTypeError, "", map[string]string{"error": errorMsg}))
}

// Publish encodes an event and fans it out to channel subscribers, or to
// a single user when userID is set.
func (m *Manager) Publish(eventType, channelID, userID string, data interface{}) {
	payload, err := json.Marshal(newWSMessage(eventType, channelID, data))
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s event: %v", eventType, err)
		return
	}

	if userID != "" {
		m.SendToUser(userID, payload)
		return
	}
	m.BroadcastToChannel(channelID, payload)
}
