package http

import (
	"encoding/base64"
	"errors"

	"github.com/NeuralTrust/SecurityProxy/pkg/app/files"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type downloadFileHandler struct {
	logger     *logrus.Logger
	downloader files.Downloader
}

func NewDownloadFileHandler(logger *logrus.Logger, downloader files.Downloader) Handler {
	return &downloadFileHandler{
		logger:     logger,
		downloader: downloader,
	}
}

// Handle @Summary Download a conversation file
// @Description Returns the stored file as an inline base64 attachment, or the raw bytes when raw=true
// @Tags Files
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Param hash path string true "SHA-256 hash"
// @Param raw query bool false "Return the raw bytes"
// @Success 200 {object} message.File "Inline file"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /api/v1/conversations/{conversation_id}/files/{hash} [get]
func (h *downloadFileHandler) Handle(c *fiber.Ctx) error {
	conversationID := c.Params("conversation_id")
	hash := c.Params("hash")

	f, err := h.downloader.Download(c.Context(), conversationID, hash)
	if err != nil {
		if errors.Is(err, file.ErrFileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "file not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}

	if c.QueryBool("raw") {
		data, err := base64.StdEncoding.DecodeString(f.Value)
		if err != nil {
			h.logger.WithError(err).Error("stored file is not valid base64")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
		}
		if f.Name != "" {
			c.Attachment(f.Name)
		}
		c.Set(fiber.HeaderContentType, f.Mime)
		return c.Status(fiber.StatusOK).Send(data)
	}
	return c.Status(fiber.StatusOK).JSON(f)
}
