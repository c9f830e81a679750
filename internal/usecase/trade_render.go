package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"tradeboard/internal/domain/entity"
	"tradeboard/pkg/logger"
)

const (
	accentColor = 0x5865F2
	footerText  = "Trade board"
	// Platform limit on embeds per message.
	maxEmbeds = 10

	fieldSelling = "selling"
	fieldBuying  = "buying"
	fieldNote    = "note"
	fieldOffer   = "offer"
)

var imageExtension = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp|heic|heif|avif)(\?|$)`)

func (uc *TradeUseCase) footerHint() string {
	if uc.autoTrading.Load() {
		return footerText + " • Use /trade or post an image to create your own listing"
	}
	return footerText + " • Use /trade to create your own listing"
}

// renderListing builds the board embeds: the main block followed by one
// block per extra image.
func (uc *TradeUseCase) renderListing(listing *entity.Listing) []entity.Embed {
	main := entity.Embed{
		Title:       "Trade offer",
		Description: fmt.Sprintf("Posted by %s | Expires <t:%d:R>", entity.Mention(listing.UserID), listing.ExpiresAt.Unix()),
		Color:       accentColor,
		Footer:      uc.footerHint(),
	}
	if listing.Selling != "" {
		main.Fields = append(main.Fields, entity.EmbedField{Name: "Selling", Value: listing.Selling})
	}
	if listing.Buying != "" {
		main.Fields = append(main.Fields, entity.EmbedField{Name: "Buying", Value: listing.Buying})
	}
	if listing.Note != "" {
		main.Fields = append(main.Fields, entity.EmbedField{Name: "Note", Value: listing.Note})
	}

	images := listingImages(listing)
	if len(images) == 0 {
		return []entity.Embed{main}
	}

	main.ImageURL = images[0]
	embeds := []entity.Embed{main}
	for _, url := range images[1:] {
		if len(embeds) == maxEmbeds {
			break
		}
		embeds = append(embeds, entity.Embed{Color: accentColor, ImageURL: url})
	}
	return embeds
}

// listingImages picks the display URLs of the first attachments that look
// like images. When none qualifies, the first attachment with a usable URL
// is shown anyway.
func listingImages(listing *entity.Listing) []string {
	attachments := listing.Attachments
	if len(attachments) > entity.MaxAttachments {
		attachments = attachments[:entity.MaxAttachments]
	}

	var images []string
	for i, attachment := range attachments {
		url := attachment.DisplayURL()
		if url == "" {
			logger.Debug("Trade: attachment skipped, no valid url %s", logger.Fields("listing", listing.ID, "index", i))
			continue
		}
		if looksLikeImage(attachment, url) {
			images = append(images, url)
		}
	}
	if len(images) > 0 {
		return images
	}

	for _, attachment := range listing.Attachments {
		if url := attachment.DisplayURL(); url != "" {
			return []string{url}
		}
	}
	return nil
}

func looksLikeImage(attachment entity.Attachment, displayURL string) bool {
	return strings.HasPrefix(attachment.ContentType, "image/") ||
		imageExtension.MatchString(attachment.Name) ||
		imageExtension.MatchString(displayURL)
}

// listingControls is the public control row. Every control is visible to
// everyone; ownership is checked when it is pressed.
func listingControls(listing *entity.Listing) []entity.ActionRow {
	buttons := []entity.Button{{
		CustomID: ListingAction(ActionOffer, listing.ID, listing.UserID).CustomID(),
		Label:    "Counter-offer",
		Style:    entity.ButtonPrimary,
	}}

	if listing.HasBothSides() {
		buttons = append(buttons, entity.Button{
			CustomID: ListingAction(ActionAcceptDirect, listing.ID, listing.UserID).CustomID(),
			Label:    "Accept",
			Style:    entity.ButtonSuccess,
		})
	}

	buttons = append(buttons,
		entity.Button{
			CustomID: ListingAction(ActionEdit, listing.ID, listing.UserID).CustomID(),
			Label:    "Edit listing",
			Style:    entity.ButtonSecondary,
		},
		entity.Button{
			CustomID: ListingAction(ActionComplete, listing.ID, listing.UserID).CustomID(),
			Label:    "Trade completed",
			Style:    entity.ButtonSuccess,
		},
		entity.Button{
			CustomID: ListingAction(ActionDelete, listing.ID, listing.UserID).CustomID(),
			Label:    "Delete listing",
			Style:    entity.ButtonDanger,
		},
	)

	return []entity.ActionRow{{Buttons: buttons}}
}

// negotiationControls is the row on a private offer message. Silent deny
// only exists on the first hop, addressed to the listing owner.
func negotiationControls(listingID, recipientID, senderID string, includeSilentDeny bool) []entity.ActionRow {
	buttons := []entity.Button{
		{
			CustomID: NegotiationAction(ActionAccept, listingID, recipientID, senderID).CustomID(),
			Label:    "Accept",
			Style:    entity.ButtonSuccess,
		},
		{
			CustomID: NegotiationAction(ActionDeny, listingID, recipientID, senderID).CustomID(),
			Label:    "Deny",
			Style:    entity.ButtonDanger,
		},
	}

	if includeSilentDeny {
		buttons = append(buttons, entity.Button{
			CustomID: NegotiationAction(ActionSilent, listingID, recipientID, senderID).CustomID(),
			Label:    "Deny silently",
			Style:    entity.ButtonSecondary,
		})
	}

	buttons = append(buttons, entity.Button{
		CustomID: NegotiationAction(ActionCounter, listingID, recipientID, senderID).CustomID(),
		Label:    "Counter-offer",
		Style:    entity.ButtonPrimary,
	})

	return []entity.ActionRow{{Buttons: buttons}}
}

func offerEmbed(description, offerText, listingURL string) entity.Embed {
	return entity.Embed{
		Title:       "New counter-offer",
		Description: description,
		Color:       accentColor,
		Fields: []entity.EmbedField{
			{Name: "Offer", Value: offerText},
			{Name: "Link", Value: listingURL},
		},
		Footer: footerText,
	}
}

func listingFields(selling, buying, note string) []entity.FormField {
	return []entity.FormField{
		{ID: fieldSelling, Label: "Selling", Value: selling, MaxLength: maxFieldLength},
		{ID: fieldBuying, Label: "Buying", Value: buying, MaxLength: maxFieldLength},
		{ID: fieldNote, Label: "Note", Value: note, MaxLength: maxFieldLength},
	}
}

func createForm(customID string) *entity.Form {
	return &entity.Form{
		CustomID:       customID,
		Title:          "Trade",
		Fields:         listingFields("", "", ""),
		MaxAttachments: entity.MaxAttachments,
	}
}

func editForm(listing *entity.Listing) *entity.Form {
	return &entity.Form{
		CustomID: Action{Kind: FormEdit, ListingID: listing.ID}.CustomID(),
		Title:    "Edit listing",
		Fields:   listingFields(listing.Selling, listing.Buying, listing.Note),
	}
}

func offerForm(customID string) *entity.Form {
	return &entity.Form{
		CustomID: customID,
		Title:    "Counter-offer",
		Fields: []entity.FormField{
			{ID: fieldOffer, Label: "What do you offer?", Required: true, MaxLength: maxFieldLength},
		},
	}
}
