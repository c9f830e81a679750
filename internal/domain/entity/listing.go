package entity

import (
	"strings"
	"time"
)

// MaxAttachments is how many uploads a listing accepts and displays.
const MaxAttachments = 4

type Attachment struct {
	ID          string `json:"id" firestore:"id"`
	URL         string `json:"url" firestore:"url"`
	Name        string `json:"name" firestore:"name"`
	ContentType string `json:"content_type" firestore:"contentType"`
	CachedURL   string `json:"cached_url,omitempty" firestore:"cachedUrl,omitempty"`
}

// DisplayURL prefers the re-hosted copy and falls back to the source URL.
// It returns "" when neither is safe to embed.
func (a Attachment) DisplayURL() string {
	for _, candidate := range []string{a.CachedURL, a.URL} {
		if IsEmbeddableURL(candidate) {
			return candidate
		}
	}
	return ""
}

// IsEmbeddableURL accepts absolute http(s) URLs without whitespace or
// angle brackets.
func IsEmbeddableURL(candidate string) bool {
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		return false
	}
	if strings.ContainsAny(candidate, "<>") {
		return false
	}
	return !strings.ContainsFunc(candidate, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
	})
}

// Listing is one trade post. It exists from creation until it is closed;
// closing removes the record and its board message together.
type Listing struct {
	ID          string       `json:"id" firestore:"id"`
	UserID      string       `json:"user_id" firestore:"userId"`
	GuildID     string       `json:"guild_id" firestore:"guildId"`
	MessageID   string       `json:"message_id" firestore:"messageId"`
	ChannelID   string       `json:"channel_id" firestore:"channelId"`
	Selling     string       `json:"selling,omitempty" firestore:"selling,omitempty"`
	Buying      string       `json:"buying,omitempty" firestore:"buying,omitempty"`
	Note        string       `json:"note,omitempty" firestore:"offering,omitempty"`
	Attachments []Attachment `json:"attachments" firestore:"attachments"`
	ExpiresAt   time.Time    `json:"expires_at" firestore:"expiresAt"`
	CreatedAt   time.Time    `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time    `json:"updated_at" firestore:"updatedAt"`
}

// HasBothSides is true when the listing states a concrete two-sided trade,
// which is what enables the direct accept control.
func (l *Listing) HasBothSides() bool {
	return l.Selling != "" && l.Buying != ""
}

// Ref points at the listing's public board message.
func (l *Listing) Ref() MessageRef {
	return MessageRef{ChannelID: l.ChannelID, MessageID: l.MessageID}
}

// HasContent enforces the non-blank rule: at least one text field or one
// attachment.
func HasContent(selling, buying, note string, attachments int) bool {
	return selling != "" || buying != "" || note != "" || attachments > 0
}

// ListingUpdate carries the editable text fields. Nil means unchanged and
// an empty string clears the field.
type ListingUpdate struct {
	Selling *string
	Buying  *string
	Note    *string
}

func (u ListingUpdate) Apply(l *Listing) {
	if u.Selling != nil {
		l.Selling = *u.Selling
	}
	if u.Buying != nil {
		l.Buying = *u.Buying
	}
	if u.Note != nil {
		l.Note = *u.Note
	}
}
