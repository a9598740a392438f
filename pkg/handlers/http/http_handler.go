package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	// Files
	UploadFileHandler   Handler
	DownloadFileHandler Handler

	// Chat
	SendMessageHandler   Handler
	SecurityCheckHandler Handler

	// Version
	GetVersionHandler Handler
}
