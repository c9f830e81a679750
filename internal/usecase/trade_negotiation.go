package usecase

import (
	"context"

	"tradeboard/internal/domain/entity"
	"tradeboard/pkg/errors"
	"tradeboard/pkg/logger"
)

const closeViaCompleteHint = `Once the trade is done, press "Trade completed" on the listing so it can close.`

func (uc *TradeUseCase) startOffer(ctx context.Context, actor entity.Actor, action Action) (*InteractionResult, error) {
	listing, err := uc.activeListing(ctx, action.ListingID)
	if err != nil {
		return nil, err
	}
	if actor.UserID == listing.UserID {
		return nil, errors.Forbidden("You cannot make an offer on your own listing.", nil)
	}

	form := Action{Kind: FormOffer, ListingID: listing.ID, SenderID: actor.UserID}
	return &InteractionResult{Form: offerForm(form.CustomID())}, nil
}

// submitOffer sends the first hop to the listing owner.
func (uc *TradeUseCase) submitOffer(ctx context.Context, actor entity.Actor, action Action, text string) (*InteractionResult, error) {
	if actor.UserID != action.SenderID {
		return nil, errors.Forbidden("This form is not for you.", nil)
	}
	listing, err := uc.activeListing(ctx, action.ListingID)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.BadRequest("The offer text must not be empty.", nil)
	}
	if err := uc.allow(actor.UserID, rateActionOffer); err != nil {
		return nil, err
	}

	post := entity.Post{
		Embeds: []entity.Embed{offerEmbed(
			entity.Mention(actor.UserID)+" responded to your listing.",
			text,
			uc.listingURL(listing),
		)},
		Components: negotiationControls(listing.ID, listing.UserID, actor.UserID, true),
	}

	if !uc.sendOffer(ctx, listing.ID, listing.UserID, actor.UserID, post) {
		return &InteractionResult{Notice: "Could not deliver the direct message to the author of the listing."}, nil
	}
	return &InteractionResult{Message: "Your offer was sent to the author by direct message."}, nil
}

// submitCounter sends a later hop. It needs the message whose Counter
// control opened the form; that message is used up once the counter is
// delivered.
func (uc *TradeUseCase) submitCounter(ctx context.Context, actor entity.Actor, action Action, text string) (*InteractionResult, error) {
	if actor.UserID != action.SenderID {
		return nil, errors.Forbidden("This form is not for you.", nil)
	}
	listing, err := uc.activeListing(ctx, action.ListingID)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.BadRequest("The text must not be empty.", nil)
	}

	key := counterKey{listingID: listing.ID, senderID: actor.UserID, targetID: action.RecipientID}
	uc.mutex.Lock()
	source, ok := uc.pendingCounters[key]
	uc.mutex.Unlock()
	if !ok {
		return nil, errors.Answered(nil)
	}
	counterID := NegotiationAction(ActionCounter, listing.ID, actor.UserID, action.RecipientID).CustomID()
	if err := uc.requireEnabled(ctx, source, counterID); err != nil {
		uc.forgetCounter(key)
		return nil, err
	}
	if err := uc.allow(actor.UserID, rateActionOffer); err != nil {
		return nil, err
	}

	post := entity.Post{
		Embeds: []entity.Embed{offerEmbed(
			entity.Mention(actor.UserID)+" sent a counter-offer.",
			text,
			uc.listingURL(listing),
		)},
		Components: negotiationControls(listing.ID, action.RecipientID, actor.UserID, false),
	}

	if !uc.sendOffer(ctx, listing.ID, action.RecipientID, actor.UserID, post) {
		return &InteractionResult{Notice: "Could not deliver the direct message."}, nil
	}

	uc.forgetCounter(key)
	if _, err := uc.messenger.ClaimComponent(ctx, source, counterID); err != nil {
		logger.Warn("Trade: failed to disable offer controls %s", logger.Fields("listing", listing.ID, "message", source.MessageID, "error", err))
	}

	return &InteractionResult{Message: "Your counter-offer was sent."}, nil
}

func (uc *TradeUseCase) forgetCounter(key counterKey) {
	uc.mutex.Lock()
	delete(uc.pendingCounters, key)
	uc.mutex.Unlock()
}

// sendOffer delivers a negotiation hop and tracks it so the listing's
// closure can disable it.
func (uc *TradeUseCase) sendOffer(ctx context.Context, listingID, recipientID, senderID string, post entity.Post) bool {
	ref, err := uc.messenger.SendDirect(ctx, recipientID, post)
	if err != nil {
		logger.Warn("Trade: offer not delivered %s", logger.Fields("listing", listingID, "recipient", recipientID, "error", err))
		return false
	}

	uc.trackOffer(entity.OfferMessage{
		ListingID:   listingID,
		RecipientID: recipientID,
		SenderID:    senderID,
		Ref:         ref,
	})
	return true
}

// respond handles Accept, Deny, Deny silently and Counter on a private
// offer message. Only the addressed recipient may press them, and each
// offer message answers once.
func (uc *TradeUseCase) respond(ctx context.Context, actor entity.Actor, action Action, source entity.MessageRef) (*InteractionResult, error) {
	if actor.UserID != action.RecipientID {
		return nil, errors.Forbidden("This button is not for you.", nil)
	}
	if source.MessageID == "" {
		return nil, errors.BadRequest("The message carrying this button is required.", nil)
	}
	listing, err := uc.activeListing(ctx, action.ListingID)
	if err != nil {
		return nil, err
	}

	if action.Kind == ActionCounter {
		if err := uc.requireEnabled(ctx, source, action.CustomID()); err != nil {
			return nil, err
		}
		uc.mutex.Lock()
		uc.pendingCounters[counterKey{listingID: listing.ID, senderID: actor.UserID, targetID: action.SenderID}] = source
		uc.mutex.Unlock()
		form := Action{Kind: FormCounter, ListingID: listing.ID, SenderID: actor.UserID, RecipientID: action.SenderID}
		return &InteractionResult{Form: offerForm(form.CustomID())}, nil
	}

	if err := uc.claim(ctx, source, action.CustomID()); err != nil {
		return nil, err
	}

	switch action.Kind {
	case ActionAccept:
		post := entity.Post{Content: "Your offer was accepted. Get in touch with " + entity.Mention(actor.UserID) +
			" to arrange the trade.\n" + uc.listingURL(listing)}
		notice := uc.notify(ctx, listing.ID, action.SenderID, post)
		return &InteractionResult{
			Message: "Accepted and the other side was notified. " + closeViaCompleteHint,
			Notice:  notice,
		}, nil

	case ActionDeny:
		post := entity.Post{Embeds: []entity.Embed{{
			Title:       "Offer denied",
			Description: "Your offer was denied.",
			Color:       accentColor,
			Fields:      []entity.EmbedField{{Name: "Listing", Value: uc.listingURL(listing)}},
			Footer:      footerText,
		}}}
		notice := uc.notify(ctx, listing.ID, action.SenderID, post)
		return &InteractionResult{Message: "Offer denied.", Notice: notice}, nil

	case ActionSilent:
		return &InteractionResult{Message: "Offer denied. The other side was not notified."}, nil
	}

	return nil, errors.BadRequest("Invalid action.", nil)
}

// claim uses up the controls of an offer message. A message that was
// already answered, or is gone, yields NOT_ACTIVE.
func (uc *TradeUseCase) claim(ctx context.Context, source entity.MessageRef, customID string) error {
	claimed, err := uc.messenger.ClaimComponent(ctx, source, customID)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.Answered(err)
		}
		return errors.Internal("Failed to update the offer message", err)
	}
	if !claimed {
		return errors.Answered(nil)
	}
	return nil
}

func (uc *TradeUseCase) requireEnabled(ctx context.Context, source entity.MessageRef, customID string) error {
	enabled, err := uc.messenger.ComponentEnabled(ctx, source, customID)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.Answered(err)
		}
		return errors.Internal("Failed to read the offer message", err)
	}
	if !enabled {
		return errors.Answered(nil)
	}
	return nil
}

// acceptDirect lets a non-owner take a two-sided listing as posted.
func (uc *TradeUseCase) acceptDirect(ctx context.Context, actor entity.Actor, action Action) (*InteractionResult, error) {
	listing, err := uc.activeListing(ctx, action.ListingID)
	if err != nil {
		return nil, err
	}
	if actor.UserID == action.OwnerID || actor.UserID == listing.UserID {
		return nil, errors.Forbidden("This button is for interested users, not the author.", nil)
	}
	if !listing.HasBothSides() {
		return nil, errors.BadRequest("This listing cannot be accepted directly.", nil)
	}
	if err := uc.allow(actor.UserID, rateActionOffer); err != nil {
		return nil, err
	}

	listingURL := uc.listingURL(listing)
	summary := entity.Post{Embeds: []entity.Embed{{
		Title:       "Someone accepted your listing",
		Description: entity.Mention(actor.UserID) + " accepted the offer. Contact them to arrange the trade.",
		Color:       accentColor,
		Fields:      []entity.EmbedField{{Name: "Listing", Value: listingURL}},
		Footer:      footerText,
	}}}

	notice := uc.notify(ctx, listing.ID, listing.UserID, summary)
	if notice == "" {
		notice = uc.notify(ctx, listing.ID, listing.UserID, entity.Post{Content: closeViaCompleteHint + "\n" + listingURL})
	}

	return &InteractionResult{
		Message: "The author was notified by direct message. " + closeViaCompleteHint,
		Notice:  notice,
	}, nil
}

// notify sends an informational private message. A failure comes back as
// a notice for the acting user.
func (uc *TradeUseCase) notify(ctx context.Context, listingID, userID string, post entity.Post) string {
	if _, err := uc.messenger.SendDirect(ctx, userID, post); err != nil {
		logger.Warn("Trade: notification not delivered %s", logger.Fields("listing", listingID, "recipient", userID, "error", err))
		return "The other side could not be notified by direct message."
	}
	return ""
}
