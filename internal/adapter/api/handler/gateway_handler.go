package handler

import (
	"github.com/labstack/echo/v4"

	"tradeboard/internal/domain/entity"
	"tradeboard/internal/infrastructure/websocket"
	"tradeboard/internal/usecase"
	"tradeboard/pkg/response"
	"tradeboard/pkg/utils"
)

// GatewayHandler exposes the in-process chat gateway: the board as
// rendered, each user's private inbox and the board's plain messages.
type GatewayHandler struct {
	gateway      *websocket.Gateway
	tradeUseCase *usecase.TradeUseCase
}

func NewGatewayHandler(gateway *websocket.Gateway, tradeUseCase *usecase.TradeUseCase) *GatewayHandler {
	return &GatewayHandler{
		gateway:      gateway,
		tradeUseCase: tradeUseCase,
	}
}

type boardMessageRequest struct {
	ID          string              `json:"id" validate:"max=100"`
	Content     string              `json:"content" validate:"max=4000"`
	Attachments []attachmentRequest `json:"attachments" validate:"max=10,dive"`
	EmbedImages []string            `json:"embed_images" validate:"max=10"`
	StickerURL  string              `json:"sticker_url"`
	Bot         bool                `json:"bot"`
}

type directMessagesRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *GatewayHandler) GetBoard(c echo.Context) error {
	messages := h.gateway.Messages(h.tradeUseCase.ChannelID())
	return response.Success(c, utils.Paginate(messages, utils.GetPaginationParams(c)))
}

func (h *GatewayHandler) GetInbox(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, utils.Paginate(h.gateway.Inbox(a.UserID), utils.GetPaginationParams(c)))
}

func (h *GatewayHandler) SetDirectMessages(c echo.Context) error {
	var req directMessagesRequest
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

	h.gateway.SetDirectMessages(a.UserID, *req.Enabled)
	return response.Success(c, map[string]bool{"enabled": *req.Enabled})
}

// PostBoardMessage stores a plain message in the board channel and hands
// it to auto-listing. The response carries the listing when one was made.
func (h *GatewayHandler) PostBoardMessage(c echo.Context) error {
	var req boardMessageRequest
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

	ctx := c.Request().Context()
	msg, err := h.gateway.PostUserMessage(ctx, entity.InboundMessage{
		ID:          req.ID,
		ChannelID:   h.tradeUseCase.ChannelID(),
		Author:      a,
		Bot:         req.Bot,
		Content:     req.Content,
		Attachments: toAttachments(req.Attachments),
		EmbedImages: req.EmbedImages,
		StickerURL:  req.StickerURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	listing, err := h.tradeUseCase.Ingest(ctx, msg)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{
		"message_id": msg.ID,
		"listing":    listing,
	})
}
