package handler

import (
	"github.com/labstack/echo/v4"

	"tradeboard/internal/adapter/api/middleware"
	"tradeboard/internal/domain/entity"
	"tradeboard/internal/usecase"
	"tradeboard/pkg/errors"
	"tradeboard/pkg/response"
)

type TradeHandler struct {
	tradeUseCase *usecase.TradeUseCase
}

func NewTradeHandler(tradeUseCase *usecase.TradeUseCase) *TradeHandler {
	return &TradeHandler{tradeUseCase: tradeUseCase}
}

type attachmentRequest struct {
	ID          string `json:"id"`
	URL         string `json:"url" validate:"required,url"`
	Name        string `json:"name" validate:"max=255"`
	ContentType string `json:"content_type" validate:"max=127"`
}

type createListingRequest struct {
	Selling     string              `json:"selling" validate:"max=900"`
	Buying      string              `json:"buying" validate:"max=900"`
	Note        string              `json:"note" validate:"max=900"`
	Attachments []attachmentRequest `json:"attachments" validate:"max=4,dive"`
	ContextKey  string              `json:"context_key" validate:"max=100"`
}

type autoTradingRequest struct {
	Enabled *bool `json:"enabled"`
}

type buttonRequest struct {
	CustomID  string `json:"custom_id" validate:"required,max=200"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type formRequest struct {
	CustomID    string              `json:"custom_id" validate:"required,max=200"`
	Fields      map[string]string   `json:"fields" validate:"dive,max=900"`
	Attachments []attachmentRequest `json:"attachments" validate:"max=4,dive"`
}

func toAttachments(requests []attachmentRequest) []entity.Attachment {
	if len(requests) == 0 {
		return nil
	}
	attachments := make([]entity.Attachment, len(requests))
	for i, req := range requests {
		attachments[i] = entity.Attachment{
			ID:          req.ID,
			URL:         req.URL,
			Name:        req.Name,
			ContentType: req.ContentType,
		}
	}
	return attachments
}

func actor(c echo.Context) (entity.Actor, error) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		return entity.Actor{}, errors.Unauthorized("Authentication required", nil)
	}
	return a, nil
}

func (h *TradeHandler) ListCommands(c echo.Context) error {
	return response.Success(c, usecase.Commands())
}

func (h *TradeHandler) StartTrade(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.tradeUseCase.StartCreate(c.Request().Context(), a)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}

func (h *TradeHandler) SetAutoTrading(c echo.Context) error {
	var req autoTradingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	enabled, err := h.tradeUseCase.SetAutoTrading(c.Request().Context(), req.Enabled)
	if err != nil {
		return response.Error(c, err)
	}

	message := "Automatic listings from image posts are now off."
	if enabled {
		message = "Automatic listings from image posts are now on."
	}
	return response.Success(c, map[string]interface{}{
		"enabled": enabled,
		"message": message,
	})
}

func (h *TradeHandler) CreateListing(c echo.Context) error {
	var req createListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	a, err := actor(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.tradeUseCase.Create(c.Request().Context(), a, usecase.CreateListingInput{
		Selling:     req.Selling,
		Buying:      req.Buying,
		Note:        req.Note,
		Attachments: toAttachments(req.Attachments),
		ContextKey:  req.ContextKey,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, result)
}

func (h *TradeHandler) PressButton(c echo.Context) error {
	var req buttonRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	a, err := actor(c)
	if err != nil {
		return response.Error(c, err)
	}

	source := entity.MessageRef{ChannelID: req.ChannelID, MessageID: req.MessageID}
	result, err := h.tradeUseCase.HandleButton(c.Request().Context(), a, req.CustomID, source)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}

func (h *TradeHandler) SubmitForm(c echo.Context) error {
	var req formRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	a, err := actor(c)
	if err != nil {
		return response.Error(c, err)
	}

	result, err := h.tradeUseCase.HandleForm(c.Request().Context(), a, req.CustomID, req.Fields, toAttachments(req.Attachments))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}
