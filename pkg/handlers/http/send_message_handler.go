package http

import (
	"errors"

	"github.com/NeuralTrust/SecurityProxy/pkg/app/chat"
	"github.com/NeuralTrust/SecurityProxy/pkg/common"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/NeuralTrust/SecurityProxy/pkg/handlers/http/request"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/llm"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type sendMessageHandler struct {
	logger  *logrus.Logger
	service chat.Service
}

func NewSendMessageHandler(logger *logrus.Logger, service chat.Service) Handler {
	return &sendMessageHandler{
		logger:  logger,
		service: service,
	}
}

// Handle @Summary Send a chat message
// @Description Runs one chat round through the security proxy and returns the assistant message with its debug record
// @Tags Chat
// @Accept json
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Param request body request.SendMessageRequest true "Conversation messages and settings"
// @Success 200 {object} chat.Result "Assistant message"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 404 {object} map[string]interface{} "Attachment not found"
// @Failure 502 {object} map[string]interface{} "Model call failed"
// @Router /api/v1/conversations/{conversation_id}/messages [post]
func (h *sendMessageHandler) Handle(c *fiber.Ctx) error {
	conversationID := c.Params("conversation_id")
	c.Locals(common.ConversationIDContextKey, conversationID)

	var req request.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := h.service.Run(c.Context(), chat.Request{
		ConversationID: conversationID,
		Messages:       req.Messages,
		Override:       decodeSettings(h.logger, "settings", req.Settings),
		Global:         decodeSettings(h.logger, "globalSettings", req.GlobalSettings),
	})
	if err != nil {
		status, msg := fiber.StatusInternalServerError, "failed to process message"
		switch {
		case errors.Is(err, chat.ErrConversationRequired):
			status, msg = fiber.StatusBadRequest, err.Error()
		case errors.Is(err, file.ErrFileNotFound):
			status, msg = fiber.StatusNotFound, err.Error()
		case errors.Is(err, llm.ErrModelCallFailed), errors.Is(err, llm.ErrModelRequired):
			status, msg = fiber.StatusBadGateway, err.Error()
		default:
			h.logger.WithError(err).WithField("conversation_id", conversationID).Error("chat round failed")
		}
		body := fiber.Map{"error": msg}
		if res != nil {
			body["updates"] = res.Updates
			body["debug"] = res.Debug
		}
		return c.Status(status).JSON(body)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}
