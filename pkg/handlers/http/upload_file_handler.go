package http

import (
	"errors"
	"io"

	"github.com/NeuralTrust/SecurityProxy/pkg/app/files"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const uploadFormField = "file"

type uploadFileHandler struct {
	logger   *logrus.Logger
	uploader files.Uploader
}

func NewUploadFileHandler(logger *logrus.Logger, uploader files.Uploader) Handler {
	return &uploadFileHandler{
		logger:   logger,
		uploader: uploader,
	}
}

// Handle @Summary Upload a conversation file
// @Description Stores a file under its SHA-256 hash and returns the reference to attach to messages
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Param file formData file true "File to upload"
// @Success 201 {object} message.File "File reference"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Router /api/v1/conversations/{conversation_id}/files [post]
func (h *uploadFileHandler) Handle(c *fiber.Ctx) error {
	conversationID := c.Params("conversation_id")

	header, err := c.FormFile(uploadFormField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	f, err := header.Open()
	if err != nil {
		h.logger.WithError(err).Error("failed to open uploaded file")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read file"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.WithError(err).Error("failed to read uploaded file")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read file"})
	}

	ref, err := h.uploader.Upload(c.Context(), conversationID, header.Filename, header.Header.Get(fiber.HeaderContentType), data)
	if err != nil {
		if errors.Is(err, file.ErrInvalidFileReference) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store file"})
	}
	return c.Status(fiber.StatusCreated).JSON(ref)
}
