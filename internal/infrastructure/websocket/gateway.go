package websocket

import (
	"context"
	"crypto/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"tradeboard/internal/domain/entity"
	"tradeboard/pkg/errors"
	"tradeboard/pkg/logger"
)

const (
	MessageKindDefault   = "default"
	MessageKindPinNotice = "pin_notice"

	directChannelPrefix = "dm-"
	// Pin notices further back than this are left alone.
	pinNoticeWindow = 5
)

// Message is a message stored by the gateway.
type Message struct {
	ID          string              `json:"id"`
	ChannelID   string              `json:"channel_id"`
	AuthorID    string              `json:"author_id"`
	Kind        string              `json:"kind"`
	Content     string              `json:"content,omitempty"`
	Embeds      []entity.Embed      `json:"embeds,omitempty"`
	Components  []entity.ActionRow  `json:"components,omitempty"`
	Attachments []entity.Attachment `json:"attachments,omitempty"`
	Pinned      bool                `json:"pinned,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	EditedAt    *time.Time          `json:"edited_at,omitempty"`
}

func (m *Message) clone() Message {
	c := *m
	c.Embeds = slices.Clone(m.Embeds)
	c.Components = slices.Clone(m.Components)
	c.Attachments = slices.Clone(m.Attachments)
	return c
}

// Gateway is an in-process chat platform: shared channels plus one
// private channel per user, with every change pushed over websockets.
type Gateway struct {
	botID   string
	manager *Manager

	mutex      sync.RWMutex
	channels   map[string][]*Message
	messages   map[string]*Message
	dmOwners   map[string]string
	dmDisabled map[string]bool
	entropy    *ulid.MonotonicEntropy
	now        func() time.Time
}

// NewGateway creates a gateway posting as botID. manager may be nil when
// no websocket fan-out is wanted.
func NewGateway(botID string, manager *Manager, sharedChannels ...string) *Gateway {
	g := &Gateway{
		botID:      botID,
		manager:    manager,
		channels:   make(map[string][]*Message),
		messages:   make(map[string]*Message),
		dmOwners:   make(map[string]string),
		dmDisabled: make(map[string]bool),
		entropy:    ulid.Monotonic(rand.Reader, 0),
		now:        time.Now,
	}
	for _, channelID := range sharedChannels {
		g.channels[channelID] = nil
	}
	if manager != nil {
		manager.CanSubscribe = g.CanRead
	}
	return g
}

// DirectChannelID is the private channel between the bot and userID.
func DirectChannelID(userID string) string {
	return directChannelPrefix + userID
}

// CanRead reports whether userID may see channelID.
func (g *Gateway) CanRead(userID, channelID string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if owner, ok := g.dmOwners[channelID]; ok {
		return owner == userID
	}
	if strings.HasPrefix(channelID, directChannelPrefix) {
		return channelID == DirectChannelID(userID)
	}
	_, ok := g.channels[channelID]
	return ok
}

// SetDirectMessages records whether userID accepts private messages.
func (g *Gateway) SetDirectMessages(userID string, enabled bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if enabled {
		delete(g.dmDisabled, userID)
		return
	}
	g.dmDisabled[userID] = true
}

func (g *Gateway) Send(ctx context.Context, channelID string, post entity.Post) (entity.MessageRef, error) {
	g.mutex.Lock()
	if _, ok := g.channels[channelID]; !ok {
		g.mutex.Unlock()
		return entity.MessageRef{}, errors.NotFound("Channel", nil)
	}
	msg := g.appendLocked(channelID, g.botID, MessageKindDefault, post)
	snapshot := msg.clone()
	g.mutex.Unlock()

	g.publish(EventMessageCreated, snapshot)
	return entity.MessageRef{ChannelID: channelID, MessageID: snapshot.ID}, nil
}

// PostUserMessage records a message authored by a user in a shared
// channel, the way the platform would before forwarding it to the bot.
func (g *Gateway) PostUserMessage(ctx context.Context, in entity.InboundMessage) (entity.InboundMessage, error) {
	g.mutex.Lock()
	if _, ok := g.channels[in.ChannelID]; !ok {
		g.mutex.Unlock()
		return in, errors.NotFound("Channel", nil)
	}
	msg := g.appendLocked(in.ChannelID, in.Author.UserID, MessageKindDefault, entity.Post{Content: in.Content})
	msg.Attachments = slices.Clone(in.Attachments)
	snapshot := msg.clone()
	g.mutex.Unlock()

	in.ID = snapshot.ID
	g.publish(EventMessageCreated, snapshot)
	return in, nil
}

func (g *Gateway) appendLocked(channelID, authorID, kind string, post entity.Post) *Message {
	now := g.now()
	msg := &Message{
		ID:         ulid.MustNew(ulid.Timestamp(now), g.entropy).String(),
		ChannelID:  channelID,
		AuthorID:   authorID,
		Kind:       kind,
		Content:    post.Content,
		Embeds:     slices.Clone(post.Embeds),
		Components: slices.Clone(post.Components),
		CreatedAt:  now,
	}
	g.channels[channelID] = append(g.channels[channelID], msg)
	g.messages[msg.ID] = msg
	return msg
}

func (g *Gateway) Edit(ctx context.Context, ref entity.MessageRef, post entity.Post) error {
	return g.update(ref, func(msg *Message) {
		msg.Content = post.Content
		msg.Embeds = slices.Clone(post.Embeds)
		msg.Components = slices.Clone(post.Components)
	})
}

func (g *Gateway) EditComponents(ctx context.Context, ref entity.MessageRef, rows []entity.ActionRow) error {
	return g.update(ref, func(msg *Message) {
		msg.Components = slices.Clone(rows)
	})
}

func (g *Gateway) DisableComponents(ctx context.Context, ref entity.MessageRef) error {
	return g.update(ref, func(msg *Message) {
		msg.Components = entity.DisableAll(msg.Components)
	})
}

func (g *Gateway) ComponentEnabled(ctx context.Context, ref entity.MessageRef, customID string) (bool, error) {
	msg, ok := g.Message(ref)
	if !ok {
		return false, errors.NotFound("Message", nil)
	}
	return entity.ButtonEnabled(msg.Components, customID), nil
}

func (g *Gateway) ClaimComponent(ctx context.Context, ref entity.MessageRef, customID string) (bool, error) {
	g.mutex.Lock()
	msg, ok := g.messages[ref.MessageID]
	if !ok || msg.ChannelID != ref.ChannelID {
		g.mutex.Unlock()
		return false, errors.NotFound("Message", nil)
	}
	if !entity.ButtonEnabled(msg.Components, customID) {
		g.mutex.Unlock()
		return false, nil
	}
	msg.Components = entity.DisableAll(msg.Components)
	edited := g.now()
	msg.EditedAt = &edited
	snapshot := msg.clone()
	g.mutex.Unlock()

	g.publish(EventMessageUpdated, snapshot)
	return true, nil
}

func (g *Gateway) Pin(ctx context.Context, ref entity.MessageRef) error {
	if err := g.update(ref, func(msg *Message) { msg.Pinned = true }); err != nil {
		return err
	}

	g.mutex.Lock()
	notice := g.appendLocked(ref.ChannelID, g.botID, MessageKindPinNotice, entity.Post{Content: "A message was pinned to this channel."})
	snapshot := notice.clone()
	g.mutex.Unlock()

	g.publish(EventMessageCreated, snapshot)
	return nil
}

func (g *Gateway) update(ref entity.MessageRef, mutate func(*Message)) error {
	g.mutex.Lock()
	msg, ok := g.messages[ref.MessageID]
	if !ok || msg.ChannelID != ref.ChannelID {
		g.mutex.Unlock()
		return errors.NotFound("Message", nil)
	}
	mutate(msg)
	edited := g.now()
	msg.EditedAt = &edited
	snapshot := msg.clone()
	g.mutex.Unlock()

	g.publish(EventMessageUpdated, snapshot)
	return nil
}

func (g *Gateway) Delete(ctx context.Context, ref entity.MessageRef) error {
	g.mutex.Lock()
	msg, ok := g.messages[ref.MessageID]
	if !ok || msg.ChannelID != ref.ChannelID {
		g.mutex.Unlock()
		return errors.NotFound("Message", nil)
	}
	g.removeLocked(msg)
	snapshot := msg.clone()
	g.mutex.Unlock()

	g.publish(EventMessageDeleted, snapshot)
	return nil
}

func (g *Gateway) removeLocked(msg *Message) {
	delete(g.messages, msg.ID)
	g.channels[msg.ChannelID] = slices.DeleteFunc(g.channels[msg.ChannelID], func(m *Message) bool {
		return m.ID == msg.ID
	})
}

func (g *Gateway) DeletePinNotice(ctx context.Context, channelID string) error {
	g.mutex.Lock()
	history := g.channels[channelID]
	var notice *Message
	for i := len(history) - 1; i >= 0 && i >= len(history)-pinNoticeWindow; i-- {
		if history[i].Kind == MessageKindPinNotice {
			notice = history[i]
			break
		}
	}
	if notice == nil {
		g.mutex.Unlock()
		return nil
	}
	g.removeLocked(notice)
	snapshot := notice.clone()
	g.mutex.Unlock()

	g.publish(EventMessageDeleted, snapshot)
	return nil
}

func (g *Gateway) SendDirect(ctx context.Context, userID string, post entity.Post) (entity.MessageRef, error) {
	if userID == "" {
		return entity.MessageRef{}, errors.NotFound("User", nil)
	}

	g.mutex.Lock()
	if g.dmDisabled[userID] {
		g.mutex.Unlock()
		return entity.MessageRef{}, errors.Forbidden("Cannot send messages to this user", nil)
	}
	channelID := DirectChannelID(userID)
	if _, ok := g.channels[channelID]; !ok {
		g.channels[channelID] = nil
		g.dmOwners[channelID] = userID
	}
	msg := g.appendLocked(channelID, g.botID, MessageKindDefault, post)
	snapshot := msg.clone()
	g.mutex.Unlock()

	g.publish(EventMessageCreated, snapshot)
	return entity.MessageRef{ChannelID: channelID, MessageID: snapshot.ID}, nil
}

// Message returns a copy of one stored message.
func (g *Gateway) Message(ref entity.MessageRef) (Message, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	msg, ok := g.messages[ref.MessageID]
	if !ok || msg.ChannelID != ref.ChannelID {
		return Message{}, false
	}
	return msg.clone(), true
}

// Messages returns a copy of the channel history, oldest first.
func (g *Gateway) Messages(channelID string) []Message {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	history := g.channels[channelID]
	out := make([]Message, 0, len(history))
	for _, msg := range history {
		out = append(out, msg.clone())
	}
	return out
}

// Inbox returns the private messages sent to userID.
func (g *Gateway) Inbox(userID string) []Message {
	return g.Messages(DirectChannelID(userID))
}

func (g *Gateway) publish(event string, msg Message) {
	if g.manager == nil {
		return
	}

	g.mutex.RLock()
	owner := g.dmOwners[msg.ChannelID]
	g.mutex.RUnlock()

	g.manager.Publish(event, msg.ChannelID, owner, msg)
	logger.Debug("gateway: %s %s", event, logger.Fields("channel", msg.ChannelID, "message", msg.ID))
}
