package entity

import "slices"

// Actor is the platform user behind an inbound request, as asserted by
// the chat bridge.
type Actor struct {
	UserID  string   `json:"user_id"`
	GuildID string   `json:"guild_id"`
	Roles   []string `json:"roles"`
}

func (a Actor) HasRole(roleID string) bool {
	return roleID != "" && slices.Contains(a.Roles, roleID)
}

// Mention renders the platform's user mention markup.
func Mention(userID string) string {
	return "<@" + userID + ">"
}
