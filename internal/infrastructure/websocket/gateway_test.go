package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard/internal/domain/entity"
	"tradeboard/pkg/errors"
)

func TestGateway_SendEditDelete(t *testing.T) {
	ctx := context.Background()
	g := NewGateway("bot", nil, "board")

	_, err := g.Send(ctx, "missing", entity.Post{Content: "hi"})
	assert.True(t, errors.IsNotFound(err))

	rows := []entity.ActionRow{{Buttons: []entity.Button{{CustomID: "a", Label: "A"}, {CustomID: "b", Label: "B"}}}}
	ref, err := g.Send(ctx, "board", entity.Post{Content: "first", Components: rows})
	require.NoError(t, err)
	assert.Equal(t, "board", ref.ChannelID)

	require.NoError(t, g.Edit(ctx, ref, entity.Post{Embeds: []entity.Embed{{Title: "Trade offer"}}, Components: rows}))
	require.NoError(t, g.DisableComponents(ctx, ref))
	require.NoError(t, g.DisableComponents(ctx, ref))

	msg, ok := g.Message(ref)
	require.True(t, ok)
	assert.Equal(t, "Trade offer", msg.Embeds[0].Title)
	for _, button := range msg.Components[0].Buttons {
		assert.True(t, button.Disabled)
	}
	assert.NotNil(t, msg.EditedAt)

	require.NoError(t, g.Delete(ctx, ref))
	assert.Empty(t, g.Messages("board"))
	assert.True(t, errors.IsNotFound(g.Delete(ctx, ref)))
	assert.True(t, errors.IsNotFound(g.EditComponents(ctx, ref, nil)))
}

func TestGateway_PinNotice(t *testing.T) {
	ctx := context.Background()
	g := NewGateway("bot", nil, "board")

	ref, err := g.Send(ctx, "board", entity.Post{Content: "listing"})
	require.NoError(t, err)
	require.NoError(t, g.Pin(ctx, ref))

	history := g.Messages("board")
	require.Len(t, history, 2)
	assert.True(t, history[0].Pinned)
	assert.Equal(t, MessageKindPinNotice, history[1].Kind)

	require.NoError(t, g.DeletePinNotice(ctx, "board"))
	history = g.Messages("board")
	require.Len(t, history, 1)
	assert.Equal(t, ref.MessageID, history[0].ID)

	// nothing left to clean up
	require.NoError(t, g.DeletePinNotice(ctx, "board"))
}

func TestGateway_PinNoticeOutsideWindowIsKept(t *testing.T) {
	ctx := context.Background()
	g := NewGateway("bot", nil, "board")

	ref, _ := g.Send(ctx, "board", entity.Post{Content: "listing"})
	require.NoError(t, g.Pin(ctx, ref))
	for i := 0; i < pinNoticeWindow; i++ {
		g.Send(ctx, "board", entity.Post{Content: "later"})
	}

	require.NoError(t, g.DeletePinNotice(ctx, "board"))
	assert.Len(t, g.Messages("board"), pinNoticeWindow+2)
}

func TestGateway_ClaimComponent(t *testing.T) {
	ctx := context.Background()
	g := NewGateway("bot", nil, "board")

	rows := []entity.ActionRow{{Buttons: []entity.Button{{CustomID: "accept"}, {CustomID: "deny"}}}}
	ref, err := g.SendDirect(ctx, "user-a", entity.Post{Content: "offer", Components: rows})
	require.NoError(t, err)

	enabled, err := g.ComponentEnabled(ctx, ref, "deny")
	require.NoError(t, err)
	assert.True(t, enabled)

	claimed, err := g.ClaimComponent(ctx, ref, "unknown")
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = g.ClaimComponent(ctx, ref, "accept")
	require.NoError(t, err)
	assert.True(t, claimed)

	// Every control is used up by the first claim.
	claimed, err = g.ClaimComponent(ctx, ref, "deny")
	require.NoError(t, err)
	assert.False(t, claimed)

	enabled, err = g.ComponentEnabled(ctx, ref, "deny")
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = g.ClaimComponent(ctx, entity.MessageRef{ChannelID: ref.ChannelID, MessageID: "missing"}, "accept")
	assert.True(t, errors.IsNotFound(err))
}

func TestGateway_DirectMessages(t *testing.T) {
	ctx := context.Background()
	g := NewGateway("bot", nil, "board")

	ref, err := g.SendDirect(ctx, "user-a", entity.Post{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, DirectChannelID("user-a"), ref.ChannelID)
	require.Len(t, g.Inbox("user-a"), 1)
	assert.Empty(t, g.Inbox("user-b"))

	assert.True(t, g.CanRead("user-a", ref.ChannelID))
	assert.False(t, g.CanRead("user-b", ref.ChannelID))
	assert.False(t, g.CanRead("user-b", DirectChannelID("user-c")))
	assert.True(t, g.CanRead("user-b", "board"))

	g.SetDirectMessages("user-a", false)
	_, err = g.SendDirect(ctx, "user-a", entity.Post{Content: "blocked"})
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	g.SetDirectMessages("user-a", true)
	_, err = g.SendDirect(ctx, "user-a", entity.Post{Content: "again"})
	assert.NoError(t, err)
	assert.Len(t, g.Inbox("user-a"), 2)
}

func TestGateway_PublishesToSubscribers(t *testing.T) {
	ctx := context.Background()
	manager := NewManager()
	g := NewGateway("bot", manager, "board")

	watcher := &Client{UserID: "user-b", Send: make(chan []byte, 8)}
	owner := &Client{UserID: "user-a", Send: make(chan []byte, 8)}
	manager.addClient(watcher)
	manager.addClient(owner)
	require.True(t, manager.Subscribe(watcher, "board"))
	assert.False(t, manager.Subscribe(watcher, DirectChannelID("user-a")))

	_, err := g.Send(ctx, "board", entity.Post{Content: "listing"})
	require.NoError(t, err)
	_, err = g.SendDirect(ctx, "user-a", entity.Post{Content: "offer"})
	require.NoError(t, err)

	var event WSMessage
	require.Len(t, watcher.Send, 1)
	require.NoError(t, json.Unmarshal(<-watcher.Send, &event))
	assert.Equal(t, EventMessageCreated, event.Type)
	assert.Equal(t, "board", event.ChannelID)

	require.Len(t, owner.Send, 1)
	require.NoError(t, json.Unmarshal(<-owner.Send, &event))
	assert.Equal(t, DirectChannelID("user-a"), event.ChannelID)
}

func TestManager_HandleClientMessage(t *testing.T) {
	manager := NewManager()
	client := &Client{UserID: "user-a", Send: make(chan []byte, 8)}
	manager.addClient(client)

	manager.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	manager.HandleClientMessage(client, []byte(`{"type":"subscribe","channel_id":"board"}`))
	manager.HandleClientMessage(client, []byte(`not json`))

	var types []string
	for len(client.Send) > 0 {
		var msg WSMessage
		require.NoError(t, json.Unmarshal(<-client.Send, &msg))
		types = append(types, msg.Type)
	}
	assert.Equal(t, []string{MessageTypePong, MessageTypeSubscribed, MessageTypeError}, types)

	manager.removeClient(client)
	_, open := <-client.Send
	assert.False(t, open)
}
