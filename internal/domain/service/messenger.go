package service

import (
	"context"

	"tradeboard/internal/domain/entity"
)

// Messenger is the chat platform as seen by the trade engine. Every call
// may fail (missing channel, blocked direct messages, network); callers
// decide how to degrade.
type Messenger interface {
	Send(ctx context.Context, channelID string, post entity.Post) (entity.MessageRef, error)
	Edit(ctx context.Context, ref entity.MessageRef, post entity.Post) error
	EditComponents(ctx context.Context, ref entity.MessageRef, rows []entity.ActionRow) error
	// DisableComponents greys out every control on the message. Calling it
	// on an already disabled message is harmless.
	DisableComponents(ctx context.Context, ref entity.MessageRef) error
	// ComponentEnabled reports whether customID is an enabled control on
	// the message.
	ComponentEnabled(ctx context.Context, ref entity.MessageRef, customID string) (bool, error)
	// ClaimComponent disables every control on the message if customID is
	// still enabled there, and reports whether it did. Only one caller can
	// claim a given message.
	ClaimComponent(ctx context.Context, ref entity.MessageRef, customID string) (bool, error)
	Delete(ctx context.Context, ref entity.MessageRef) error
	Pin(ctx context.Context, ref entity.MessageRef) error
	// DeletePinNotice removes the most recent "message pinned" system
	// notice in the channel, if one is among the latest messages.
	DeletePinNotice(ctx context.Context, channelID string) error
	// SendDirect opens (or reuses) the private channel with userID.
	SendDirect(ctx context.Context, userID string, post entity.Post) (entity.MessageRef, error)
}

// MediaCache re-hosts attachments so their URLs outlive the message they
// were uploaded with. It never fails: attachments it cannot copy come back
// unchanged.
type MediaCache interface {
	Cache(ctx context.Context, attachments []entity.Attachment, contextKey string) []entity.Attachment
}
