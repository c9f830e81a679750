package usecase

import (
	"context"
	"strings"

	"tradeboard/internal/domain/entity"
	"tradeboard/pkg/errors"
	"tradeboard/pkg/logger"
)

// HandleButton dispatches a pressed control. source is the message that
// carried it.
func (uc *TradeUseCase) HandleButton(ctx context.Context, actor entity.Actor, customID string, source entity.MessageRef) (*InteractionResult, error) {
	action, err := ParseAction(customID)
	if err != nil || action.IsForm() {
		return nil, errors.BadRequest("Invalid action.", err)
	}
	if !uc.Enabled() {
		return nil, errors.ServiceUnavailable("Trading is not available right now")
	}
	if err := uc.allow(actor.UserID, rateActionGeneric); err != nil {
		return nil, err
	}

	unlock := uc.lock(action.ListingID)
	defer unlock()

	switch action.Kind {
	case ActionOffer:
		return uc.startOffer(ctx, actor, action)
	case ActionAcceptDirect:
		return uc.acceptDirect(ctx, actor, action)
	case ActionEdit:
		return uc.startEdit(ctx, actor, action)
	case ActionComplete, ActionDelete:
		return uc.closeByOwner(ctx, actor, action)
	case ActionAccept, ActionDeny, ActionSilent, ActionCounter:
		return uc.respond(ctx, actor, action, source)
	}
	return nil, errors.BadRequest("Invalid action.", nil)
}

// HandleForm dispatches a submitted form. fields are keyed by field id.
func (uc *TradeUseCase) HandleForm(ctx context.Context, actor entity.Actor, customID string, fields map[string]string, attachments []entity.Attachment) (*InteractionResult, error) {
	action, err := ParseAction(customID)
	if err != nil || !action.IsForm() {
		return nil, errors.BadRequest("Invalid form.", err)
	}

	if action.Kind == FormCreate {
		return uc.Create(ctx, actor, CreateListingInput{
			Selling:     fields[fieldSelling],
			Buying:      fields[fieldBuying],
			Note:        fields[fieldNote],
			Attachments: attachments,
			ContextKey:  action.Nonce,
		})
	}

	if !uc.Enabled() {
		return nil, errors.ServiceUnavailable("Trading is not available right now")
	}

	unlock := uc.lock(action.ListingID)
	defer unlock()

	switch action.Kind {
	case FormEdit:
		return uc.submitEdit(ctx, actor, action, fields)
	case FormOffer:
		return uc.submitOffer(ctx, actor, action, strings.TrimSpace(fields[fieldOffer]))
	case FormCounter:
		return uc.submitCounter(ctx, actor, action, strings.TrimSpace(fields[fieldOffer]))
	}
	return nil, errors.BadRequest("Invalid form.", nil)
}

func (uc *TradeUseCase) startEdit(ctx context.Context, actor entity.Actor, action Action) (*InteractionResult, error) {
	listing, err := uc.activeListing(ctx, action.ListingID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != listing.UserID {
		return nil, errors.Forbidden("Only the author can edit this listing.", nil)
	}
	return &InteractionResult{Form: editForm(listing)}, nil
}

func (uc *TradeUseCase) submitEdit(ctx context.Context, actor entity.Actor, action Action, fields map[string]string) (*InteractionResult, error) {
	listing, err := uc.activeListing(ctx, action.ListingID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != listing.UserID {
		return nil, errors.Forbidden("Only the author can edit this listing.", nil)
	}

	selling := strings.TrimSpace(fields[fieldSelling])
	buying := strings.TrimSpace(fields[fieldBuying])
	note := strings.TrimSpace(fields[fieldNote])
	if !entity.HasContent(selling, buying, note, len(listing.Attachments)) {
		return nil, errors.BadRequest("Nothing to save. Every field is empty.", nil)
	}

	update := entity.ListingUpdate{Selling: &selling, Buying: &buying, Note: &note}
	if err := uc.listingRepo.Update(ctx, listing.ID, update); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotActive(err)
		}
		return nil, err
	}
	update.Apply(listing)

	post := entity.Post{Embeds: uc.renderListing(listing), Components: listingControls(listing)}
	if err := uc.messenger.Edit(ctx, listing.Ref(), post); err != nil {
		logger.Warn("Trade: failed to re-render listing %s", logger.Fields("listing", listing.ID, "error", err))
	}

	return &InteractionResult{Message: "The listing was updated.", Listing: listing}, nil
}

func (uc *TradeUseCase) closeByOwner(ctx context.Context, actor entity.Actor, action Action) (*InteractionResult, error) {
	if actor.UserID != action.OwnerID {
		if action.Kind == ActionComplete {
			return nil, errors.Forbidden("This button is only for the author of the listing.", nil)
		}
		return nil, errors.Forbidden("Only the author can delete this listing.", nil)
	}

	listing, err := uc.activeListing(ctx, action.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID != actor.UserID {
		return nil, errors.Forbidden("Only the author can close this listing.", nil)
	}

	closed, err := uc.closeLocked(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, errors.NotActive(nil)
	}

	if action.Kind == ActionComplete {
		return &InteractionResult{Message: "The listing was closed as completed. Thanks for confirming the trade!"}, nil
	}
	return &InteractionResult{Message: "The listing was deleted."}, nil
}
