package usecase

import (
	"fmt"
	"strings"
)

const actionPrefix = "tr"

type ActionKind string

const (
	// Listing controls: tr:<kind>:<listingId>:<ownerId>
	ActionOffer        ActionKind = "offer"
	ActionAcceptDirect ActionKind = "accept-direct"
	ActionEdit         ActionKind = "edit"
	ActionComplete     ActionKind = "complete"
	ActionDelete       ActionKind = "del"

	// Negotiation controls: tr:<kind>:<listingId>:<recipientId>:<senderId>
	ActionAccept  ActionKind = "accept"
	ActionDeny    ActionKind = "deny"
	ActionSilent  ActionKind = "silent"
	ActionCounter ActionKind = "counter"

	// Form submissions
	FormCreate  ActionKind = "create-form"  // tr:create-form:<nonce>
	FormOffer   ActionKind = "offer-form"   // tr:offer-form:<listingId>:<offererId>
	FormCounter ActionKind = "counter-form" // tr:counter-form:<listingId>:<senderId>:<targetId>
	FormEdit    ActionKind = "edit-form"    // tr:edit-form:<listingId>
)

// Action is a decoded control or form identifier. Which ids are set
// depends on Kind.
type Action struct {
	Kind        ActionKind
	ListingID   string
	OwnerID     string
	RecipientID string
	SenderID    string
	Nonce       string
}

func ListingAction(kind ActionKind, listingID, ownerID string) Action {
	return Action{Kind: kind, ListingID: listingID, OwnerID: ownerID}
}

func NegotiationAction(kind ActionKind, listingID, recipientID, senderID string) Action {
	return Action{Kind: kind, ListingID: listingID, RecipientID: recipientID, SenderID: senderID}
}

// IsForm reports whether the action identifies a form rather than a button.
func (a Action) IsForm() bool {
	switch a.Kind {
	case FormCreate, FormOffer, FormCounter, FormEdit:
		return true
	}
	return false
}

// CustomID encodes the action for a button or form.
func (a Action) CustomID() string {
	var parts []string
	switch a.Kind {
	case ActionOffer, ActionAcceptDirect, ActionEdit, ActionComplete, ActionDelete:
		parts = []string{a.ListingID, a.OwnerID}
	case ActionAccept, ActionDeny, ActionSilent, ActionCounter:
		parts = []string{a.ListingID, a.RecipientID, a.SenderID}
	case FormCreate:
		parts = []string{a.Nonce}
	case FormOffer:
		parts = []string{a.ListingID, a.SenderID}
	case FormCounter:
		parts = []string{a.ListingID, a.SenderID, a.RecipientID}
	case FormEdit:
		parts = []string{a.ListingID}
	}
	return strings.Join(append([]string{actionPrefix, string(a.Kind)}, parts...), ":")
}

// ParseAction decodes a custom id produced by CustomID.
func ParseAction(customID string) (Action, error) {
	parts := strings.Split(customID, ":")
	if len(parts) < 3 || parts[0] != actionPrefix {
		return Action{}, fmt.Errorf("unknown action %q", customID)
	}
	for _, part := range parts[2:] {
		if part == "" {
			return Action{}, fmt.Errorf("malformed action %q", customID)
		}
	}

	kind := ActionKind(parts[1])
	args := parts[2:]
	want := 0
	var action Action

	switch kind {
	case ActionOffer, ActionAcceptDirect, ActionEdit, ActionComplete, ActionDelete:
		want = 2
		if len(args) == want {
			action = ListingAction(kind, args[0], args[1])
		}
	case ActionAccept, ActionDeny, ActionSilent, ActionCounter:
		want = 3
		if len(args) == want {
			action = NegotiationAction(kind, args[0], args[1], args[2])
		}
	case FormCreate:
		want = 1
		action = Action{Kind: kind, Nonce: args[0]}
	case FormOffer:
		want = 2
		if len(args) == want {
			action = Action{Kind: kind, ListingID: args[0], SenderID: args[1]}
		}
	case FormCounter:
		want = 3
		if len(args) == want {
			action = Action{Kind: kind, ListingID: args[0], SenderID: args[1], RecipientID: args[2]}
		}
	case FormEdit:
		want = 1
		action = Action{Kind: kind, ListingID: args[0]}
	default:
		return Action{}, fmt.Errorf("unknown action kind %q", kind)
	}

	if len(args) != want {
		return Action{}, fmt.Errorf("action %q expects %d ids, got %d", kind, want, len(args))
	}
	return action, nil
}
