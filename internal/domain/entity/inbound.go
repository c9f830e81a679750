package entity

// InboundMessage is a plain user message posted to a channel, as seen by
// auto-listing ingestion.
type InboundMessage struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel_id"`
	Author      Actor        `json:"author"`
	Bot         bool         `json:"bot,omitempty"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	EmbedImages []string     `json:"embed_images,omitempty"`
	StickerURL  string       `json:"sticker_url,omitempty"`
}

// FormField is one text input of a form prompt.
type FormField struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Value     string `json:"value,omitempty"`
	Required  bool   `json:"required"`
	MaxLength int    `json:"max_length"`
}

// Form is a prompt the platform shows to the clicking user. Its CustomID
// comes back with the submission.
type Form struct {
	CustomID       string      `json:"custom_id"`
	Title          string      `json:"title"`
	Fields         []FormField `json:"fields"`
	MaxAttachments int         `json:"max_attachments,omitempty"`
}
