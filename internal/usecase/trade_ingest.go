package usecase

import (
	"context"
	"path"
	"regexp"
	"strings"

	"tradeboard/internal/domain/entity"
	"tradeboard/pkg/logger"
)

const autoAttachmentType = "image/auto"

var (
	bareURL       = regexp.MustCompile(`https?://\S+`)
	imageFileName = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp)$`)
)

// CommandOption describes one argument of a slash command.
type CommandOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
}

// Command is a definition handed to the command layer for registration.
type Command struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []CommandOption `json:"options,omitempty"`
}

// Commands returns the commands served by the trade engine.
func Commands() []Command {
	return []Command{
		{Name: "trade", Description: "Create a trade listing"},
		{
			Name:        "autotrading",
			Description: "Turn automatic listings from image posts on or off",
			Options: []CommandOption{
				{Name: "enabled", Description: "New state; flips the current one when omitted", Type: "boolean"},
			},
		},
	}
}

// Ingest turns a plain board message carrying an image into a listing and
// removes the original message. It returns nil when the message does not
// qualify.
func (uc *TradeUseCase) Ingest(ctx context.Context, msg entity.InboundMessage) (*entity.Listing, error) {
	if !uc.Enabled() || !uc.AutoTradingEnabled() || msg.Bot || msg.ChannelID != uc.config.ChannelID {
		return nil, nil
	}

	attachments := ingestAttachments(msg)
	if len(attachments) == 0 {
		return nil, nil
	}

	listing, _, err := uc.publish(ctx, msg.Author, CreateListingInput{
		Note:        truncate(strings.TrimSpace(msg.Content), maxFieldLength),
		Attachments: attachments,
		ContextKey:  msg.ID,
	})
	if err != nil {
		return nil, err
	}

	if msg.ID != "" {
		if err := uc.messenger.Delete(ctx, entity.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}); err != nil {
			logger.Warn("Trade: failed to delete source message %s", logger.Fields("listing", listing.ID, "message", msg.ID, "error", err))
		}
	}
	return listing, nil
}

// ingestAttachments keeps the message's image uploads. Without any, it
// infers one image from the first attachment, the embeds, the sticker or a
// bare link in the text, in that order.
func ingestAttachments(msg entity.InboundMessage) []entity.Attachment {
	var images []entity.Attachment
	for _, attachment := range msg.Attachments {
		if strings.HasPrefix(attachment.ContentType, "image/") || imageFileName.MatchString(attachment.Name) {
			images = append(images, attachment)
			if len(images) == entity.MaxAttachments {
				break
			}
		}
	}
	if len(images) > 0 {
		return images
	}

	inferred := inferImage(msg)
	if inferred == "" {
		return nil
	}
	return []entity.Attachment{{
		ID:          "auto",
		URL:         inferred,
		Name:        fileNameFromURL(inferred),
		ContentType: autoAttachmentType,
	}}
}

func inferImage(msg entity.InboundMessage) string {
	var candidates []string
	if len(msg.Attachments) > 0 {
		candidates = append(candidates, msg.Attachments[0].URL)
	}
	candidates = append(candidates, msg.EmbedImages...)
	candidates = append(candidates, msg.StickerURL)
	candidates = append(candidates, bareURL.FindString(msg.Content))

	for _, candidate := range candidates {
		if entity.IsEmbeddableURL(candidate) {
			return candidate
		}
	}
	return ""
}

func fileNameFromURL(rawURL string) string {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	name := path.Base(trimmed)
	if name == "" || name == "." || name == "/" || strings.Contains(name, ":") {
		return "image"
	}
	return name
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
