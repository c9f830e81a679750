package entity

// MessageRef addresses a message on the chat platform. Private channels
// use the same shape as the board channel.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type ButtonStyle string

const (
	ButtonPrimary   ButtonStyle = "primary"
	ButtonSecondary ButtonStyle = "secondary"
	ButtonSuccess   ButtonStyle = "success"
	ButtonDanger    ButtonStyle = "danger"
)

type Button struct {
	CustomID string      `json:"custom_id"`
	Label    string      `json:"label"`
	Style    ButtonStyle `json:"style"`
	Disabled bool        `json:"disabled,omitempty"`
}

type ActionRow struct {
	Buttons []Button `json:"buttons"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	Footer      string       `json:"footer,omitempty"`
}

// Post is a message payload as handed to the messaging platform.
type Post struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []Embed     `json:"embeds,omitempty"`
	Components []ActionRow `json:"components,omitempty"`
}

// DisableAll returns a copy of rows with every button disabled.
func DisableAll(rows []ActionRow) []ActionRow {
	disabled := make([]ActionRow, len(rows))
	for i, row := range rows {
		buttons := make([]Button, len(row.Buttons))
		for j, button := range row.Buttons {
			button.Disabled = true
			buttons[j] = button
		}
		disabled[i] = ActionRow{Buttons: buttons}
	}
	return disabled
}

// ButtonEnabled reports whether rows carry an enabled button with customID.
func ButtonEnabled(rows []ActionRow, customID string) bool {
	for _, row := range rows {
		for _, button := range row.Buttons {
			if button.CustomID == customID && !button.Disabled {
				return true
			}
		}
	}
	return false
}

// OfferMessage is an outstanding negotiation message. It only lives in
// memory, long enough to strip its controls when the listing closes.
type OfferMessage struct {
	ListingID   string
	RecipientID string
	SenderID    string
	Ref         MessageRef
}
