package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tradeboard/internal/domain/entity"
	"tradeboard/internal/domain/repository"
	"tradeboard/internal/domain/service"
	"tradeboard/internal/infrastructure/ratelimit"
	"tradeboard/pkg/clock"
	"tradeboard/pkg/duration"
	"tradeboard/pkg/errors"
	"tradeboard/pkg/logger"
)

const (
	lockStripes       = 64
	maxFieldLength    = 900
	fallbackLifetime  = 60 * time.Second
	closeFanOutLimit  = 8
	defaultLinkBase   = "https://discord.com/channels"
	autoTradingOn     = "true"
	autoTradingOff    = "false"
	rateActionCreate  = "create_listing"
	rateActionOffer   = "send_offer"
	rateActionGeneric = "interaction"
)

type TradeConfig struct {
	ChannelID        string
	GuildID          string
	ExtendedRoleID   string
	DefaultLifetime  time.Duration
	ExtendedLifetime time.Duration
	LinkBase         string
}

type CreateListingInput struct {
	Selling     string
	Buying      string
	Note        string
	Attachments []entity.Attachment
	// ContextKey scopes re-hosted file names, usually the id of the
	// interaction or message that carried the attachments.
	ContextKey string
}

// InteractionResult is what the clicking or submitting user sees. Notice
// carries non-fatal delivery problems.
type InteractionResult struct {
	Message string          `json:"message,omitempty"`
	Notice  string          `json:"notice,omitempty"`
	Form    *entity.Form    `json:"form,omitempty"`
	Listing *entity.Listing `json:"listing,omitempty"`
}

type counterKey struct {
	listingID string
	senderID  string
	targetID  string
}

// TradeUseCase runs the listing lifecycle: creation, expiry, edits,
// closure and the private offer/counter-offer exchange.
type TradeUseCase struct {
	listingRepo  repository.ListingRepository
	settingsRepo repository.SettingsRepository
	messenger    service.Messenger
	mediaCache   service.MediaCache
	rateLimiter  *ratelimit.RateLimiter
	clock        clock.Clock
	config       TradeConfig

	enabled     atomic.Bool
	autoTrading atomic.Bool

	// Events for one listing run one at a time.
	stripes [lockStripes]sync.Mutex

	settingsMutex sync.Mutex

	mutex           sync.Mutex
	timers          map[string]clock.Timer
	offers          map[string][]entity.OfferMessage
	pendingCounters map[counterKey]entity.MessageRef
	stopped         bool
}

// NewTradeUseCase wires the engine. mediaCache and rateLimiter may be nil.
func NewTradeUseCase(
	listingRepo repository.ListingRepository,
	settingsRepo repository.SettingsRepository,
	messenger service.Messenger,
	mediaCache service.MediaCache,
	rateLimiter *ratelimit.RateLimiter,
	clk clock.Clock,
	config TradeConfig,
) *TradeUseCase {
	if clk == nil {
		clk = clock.Real()
	}
	if config.DefaultLifetime <= 0 {
		config.DefaultLifetime = fallbackLifetime
	}
	if config.ExtendedLifetime <= 0 {
		config.ExtendedLifetime = config.DefaultLifetime
	}
	if config.LinkBase == "" {
		config.LinkBase = defaultLinkBase
	}
	config.LinkBase = strings.TrimRight(config.LinkBase, "/")

	return &TradeUseCase{
		listingRepo:     listingRepo,
		settingsRepo:    settingsRepo,
		messenger:       messenger,
		mediaCache:      mediaCache,
		rateLimiter:     rateLimiter,
		clock:           clk,
		config:          config,
		timers:          make(map[string]clock.Timer),
		offers:          make(map[string][]entity.OfferMessage),
		pendingCounters: make(map[counterKey]entity.MessageRef),
	}
}

// Init loads the auto-listing flag and reconciles timers with the
// repository. Listings that expired while the process was down are closed
// before Init returns. Without a board channel the feature stays disabled.
func (uc *TradeUseCase) Init(ctx context.Context) error {
	if uc.config.ChannelID == "" {
		logger.Warn("Trade channel is not configured. Set TRADE_CHANNEL_ID to enable trading.")
		return nil
	}

	saved, err := uc.settingsRepo.Get(ctx, entity.SettingAutoTrading, autoTradingOff)
	if err != nil {
		logger.Warn("Trade: failed to load auto-listing flag, keeping it off: %v", err)
		saved = autoTradingOff
	}
	uc.autoTrading.Store(saved == autoTradingOn)
	logger.Info("Trade service state loaded %s", logger.Fields("autoTradingEnabled", uc.autoTrading.Load()))

	if err := uc.restore(ctx); err != nil {
		return err
	}

	uc.enabled.Store(true)
	return nil
}

func (uc *TradeUseCase) restore(ctx context.Context) error {
	now := uc.clock.Now()

	expired, err := uc.listingRepo.ListExpired(ctx, now)
	if err != nil {
		return err
	}
	for _, listing := range expired {
		if _, err := uc.Close(ctx, listing.MessageID); err != nil {
			logger.Error("Trade: failed to close expired listing %s: %v", listing.ID, err)
		}
	}

	active, err := uc.listingRepo.ListActive(ctx, now)
	if err != nil {
		return err
	}
	for _, listing := range active {
		uc.scheduleExpiration(ctx, listing.MessageID, listing.ExpiresAt)
	}

	logger.Info("Trade: recovery finished %s", logger.Fields("closed", len(expired), "rearmed", len(active)))
	return nil
}

func (uc *TradeUseCase) Enabled() bool {
	return uc.enabled.Load()
}

func (uc *TradeUseCase) AutoTradingEnabled() bool {
	return uc.autoTrading.Load()
}

func (uc *TradeUseCase) ChannelID() string {
	return uc.config.ChannelID
}

// SetAutoTrading stores the auto-listing flag. A nil value flips it.
func (uc *TradeUseCase) SetAutoTrading(ctx context.Context, enabled *bool) (bool, error) {
	uc.settingsMutex.Lock()
	defer uc.settingsMutex.Unlock()

	next := !uc.autoTrading.Load()
	if enabled != nil {
		next = *enabled
	}

	if err := uc.settingsRepo.Set(ctx, entity.SettingAutoTrading, next); err != nil {
		return uc.autoTrading.Load(), err
	}
	uc.autoTrading.Store(next)
	logger.Info("Trade: auto-listing %s", logger.Fields("enabled", next))
	return next, nil
}

// StartCreate returns the creation form.
func (uc *TradeUseCase) StartCreate(ctx context.Context, actor entity.Actor) (*InteractionResult, error) {
	if !uc.Enabled() {
		return nil, errors.ServiceUnavailable("Trading is not available right now")
	}
	form := Action{Kind: FormCreate, Nonce: uuid.New().String()}
	return &InteractionResult{Form: createForm(form.CustomID())}, nil
}

// Create publishes a new listing on the board.
func (uc *TradeUseCase) Create(ctx context.Context, actor entity.Actor, input CreateListingInput) (*InteractionResult, error) {
	input.Selling = strings.TrimSpace(input.Selling)
	input.Buying = strings.TrimSpace(input.Buying)
	input.Note = strings.TrimSpace(input.Note)

	if !entity.HasContent(input.Selling, input.Buying, input.Note, len(input.Attachments)) {
		return nil, errors.BadRequest("Nothing to post. Fill in at least one field or attach an image.", nil)
	}
	if !uc.Enabled() {
		return nil, errors.ServiceUnavailable("Trading is not available right now")
	}
	if err := uc.allow(actor.UserID, rateActionCreate); err != nil {
		return nil, err
	}

	listing, lifetime, err := uc.publish(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	return &InteractionResult{
		Message: "Listing created. Expires in " + duration.Format(lifetime) + ".",
		Listing: listing,
	}, nil
}

// publish runs the shared creation path for forms and auto-listing.
func (uc *TradeUseCase) publish(ctx context.Context, actor entity.Actor, input CreateListingInput) (*entity.Listing, time.Duration, error) {
	contextKey := input.ContextKey
	if contextKey == "" {
		contextKey = uuid.New().String()
	}
	attachments := input.Attachments
	if uc.mediaCache != nil && len(attachments) > 0 {
		attachments = uc.mediaCache.Cache(ctx, attachments, contextKey)
	}

	now := uc.clock.Now()
	lifetime := uc.lifetimeFor(actor)

	guildID := actor.GuildID
	if guildID == "" {
		guildID = uc.config.GuildID
	}

	listing := &entity.Listing{
		UserID:      actor.UserID,
		GuildID:     guildID,
		ChannelID:   uc.config.ChannelID,
		Selling:     input.Selling,
		Buying:      input.Buying,
		Note:        input.Note,
		Attachments: attachments,
		ExpiresAt:   now.Add(lifetime),
		CreatedAt:   now,
	}

	ref, err := uc.messenger.Send(ctx, uc.config.ChannelID, entity.Post{Embeds: uc.renderListing(listing)})
	if err != nil {
		logger.Error("Trade: failed to post listing to board: %v", err)
		return nil, 0, errors.ServiceUnavailable("Trade channel not found. Contact an administrator.")
	}
	listing.MessageID = ref.MessageID

	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		logger.Error("Trade: failed to store listing for message %s: %v", ref.MessageID, err)
		if delErr := uc.messenger.Delete(ctx, ref); delErr != nil {
			logger.Warn("Trade: failed to remove orphaned board post %s: %v", ref.MessageID, delErr)
		}
		return nil, 0, err
	}

	// Held until the timer is armed, so a close arriving meanwhile finds
	// the timer to cancel.
	unlock := uc.lock(listing.ID)
	uc.armTimer(listing.MessageID, lifetime)

	if err := uc.messenger.EditComponents(ctx, ref, listingControls(listing)); err != nil {
		logger.Warn("Trade: failed to attach controls %s", logger.Fields("listing", listing.ID, "error", err))
	}

	if actor.HasRole(uc.config.ExtendedRoleID) {
		uc.pin(ctx, listing)
	}
	unlock()

	logger.Info("Trade: listing created %s", logger.Fields(
		"listing", listing.ID,
		"owner", listing.UserID,
		"attachments", len(listing.Attachments),
		"expiresAt", listing.ExpiresAt.Format(time.RFC3339),
	))
	return listing, lifetime, nil
}

func (uc *TradeUseCase) lifetimeFor(actor entity.Actor) time.Duration {
	if actor.HasRole(uc.config.ExtendedRoleID) {
		return uc.config.ExtendedLifetime
	}
	return uc.config.DefaultLifetime
}

func (uc *TradeUseCase) pin(ctx context.Context, listing *entity.Listing) {
	if err := uc.messenger.Pin(ctx, listing.Ref()); err != nil {
		logger.Warn("Trade: failed to pin listing %s", logger.Fields("listing", listing.ID, "error", err))
		return
	}
	if err := uc.messenger.DeletePinNotice(ctx, listing.ChannelID); err != nil {
		logger.Warn("Trade: failed to remove pin notice %s", logger.Fields("listing", listing.ID, "error", err))
	}
}

func (uc *TradeUseCase) scheduleExpiration(ctx context.Context, messageID string, expiresAt time.Time) {
	delay := expiresAt.Sub(uc.clock.Now())
	if delay <= 0 {
		if _, err := uc.Close(ctx, messageID); err != nil {
			logger.Error("Trade: failed to close listing for message %s: %v", messageID, err)
		}
		return
	}
	uc.armTimer(messageID, delay)
}

func (uc *TradeUseCase) armTimer(messageID string, delay time.Duration) {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.stopped {
		return
	}
	if previous, ok := uc.timers[messageID]; ok {
		previous.Stop()
	}
	uc.timers[messageID] = uc.clock.AfterFunc(delay, func() {
		if _, err := uc.Close(context.Background(), messageID); err != nil {
			logger.Error("Trade: failed to expire listing for message %s: %v", messageID, err)
		}
	})
}

func (uc *TradeUseCase) stopTimer(messageID string) {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if timer, ok := uc.timers[messageID]; ok {
		timer.Stop()
		delete(uc.timers, messageID)
	}
}

func (uc *TradeUseCase) lock(listingID string) func() {
	stripe := &uc.stripes[xxhash.Sum64String(listingID)%lockStripes]
	stripe.Lock()
	return stripe.Unlock
}

// Close removes the listing shown by messageID. Closing a listing that is
// already gone is a no-op and reports false.
func (uc *TradeUseCase) Close(ctx context.Context, messageID string) (bool, error) {
	listing, err := uc.listingRepo.GetByMessageID(ctx, messageID)
	if errors.IsNotFound(err) {
		uc.stopTimer(messageID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	unlock := uc.lock(listing.ID)
	defer unlock()

	return uc.closeLocked(ctx, listing.ID)
}

// closeLocked runs with the listing's stripe held.
func (uc *TradeUseCase) closeLocked(ctx context.Context, listingID string) (bool, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if errors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ref := listing.Ref()
	if err := uc.messenger.EditComponents(ctx, ref, nil); err != nil {
		logger.Warn("Trade: failed to clear listing controls %s", logger.Fields("listing", listing.ID, "error", err))
	}
	if err := uc.messenger.Delete(ctx, ref); err != nil {
		logger.Warn("Trade: failed to delete board post %s", logger.Fields("listing", listing.ID, "error", err))
	}

	uc.disableOffers(ctx, listing.ID)

	deleted, err := uc.listingRepo.Delete(ctx, listing.ID)
	if err != nil {
		return false, err
	}
	uc.stopTimer(listing.MessageID)

	if deleted {
		logger.Info("Trade: listing closed %s", logger.Fields("listing", listing.ID, "message", listing.MessageID))
	}
	return deleted, nil
}

func (uc *TradeUseCase) trackOffer(offer entity.OfferMessage) {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()
	uc.offers[offer.ListingID] = append(uc.offers[offer.ListingID], offer)
}

// disableOffers greys out every negotiation message still tracked for the
// listing, concurrently.
func (uc *TradeUseCase) disableOffers(ctx context.Context, listingID string) {
	uc.mutex.Lock()
	offers := uc.offers[listingID]
	delete(uc.offers, listingID)
	for key := range uc.pendingCounters {
		if key.listingID == listingID {
			delete(uc.pendingCounters, key)
		}
	}
	uc.mutex.Unlock()

	if len(offers) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(closeFanOutLimit)
	for _, offer := range offers {
		offer := offer
		g.Go(func() error {
			if err := uc.messenger.DisableComponents(gctx, offer.Ref); err != nil {
				logger.Warn("Trade: failed to disable offer message %s", logger.Fields("listing", listingID, "message", offer.Ref.MessageID, "error", err))
			}
			return nil
		})
	}
	g.Wait()
}

// Shutdown stops every pending expiration timer. Listings stay in the
// repository and are picked up again by the next Init.
func (uc *TradeUseCase) Shutdown() {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	uc.stopped = true
	for messageID, timer := range uc.timers {
		timer.Stop()
		delete(uc.timers, messageID)
	}
}

// PendingTimers returns the number of armed expiration timers.
func (uc *TradeUseCase) PendingTimers() int {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()
	return len(uc.timers)
}

func (uc *TradeUseCase) allow(userID, action string) error {
	if uc.rateLimiter == nil {
		return nil
	}
	if ok, wait := uc.rateLimiter.Allow(userID, action); !ok {
		logger.Debug("Trade: rate limited %s", logger.Fields("user", userID, "action", action, "wait", wait))
		return errors.TooManyRequests("Too many requests. Try again in " + duration.Format(wait) + ".")
	}
	return nil
}

// activeListing loads a listing for an interaction; a missing record means
// it was closed in the meantime.
func (uc *TradeUseCase) activeListing(ctx context.Context, listingID string) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if errors.IsNotFound(err) {
		return nil, errors.NotActive(err)
	}
	return listing, err
}

func (uc *TradeUseCase) listingURL(listing *entity.Listing) string {
	return uc.config.LinkBase + "/" + listing.GuildID + "/" + listing.ChannelID + "/" + listing.MessageID
}
