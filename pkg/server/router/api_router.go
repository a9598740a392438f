package router

import (
	"net/http"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/common"
	handlers "github.com/NeuralTrust/SecurityProxy/pkg/handlers/http"
	"github.com/NeuralTrust/SecurityProxy/pkg/server/middleware"
	"github.com/gofiber/fiber/v2"
)

const (
	HealthPath = "/health"
	PingPath   = "/__/ping"
)

type apiRouter struct {
	middlewareTransport *middleware.Transport
	handlerTransport    handlers.HandlerTransport
}

func NewAPIRouter(
	middlewareTransport *middleware.Transport,
	handlerTransport handlers.HandlerTransport,
) ServerRouter {
	return &apiRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
	}
}

func (r *apiRouter) BuildRoutes(router *fiber.App) error {
	router.Get(HealthPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	router.Get(PingPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	})

	v1 := router.Group(common.APIPrefix)
	{
		if r.middlewareTransport != nil {
			if mws := r.middlewareTransport.GetMiddlewares(); len(mws) > 0 {
				v1.Use(mws...)
			}
		}

		v1.Get("/version", r.handlerTransport.GetVersionHandler.Handle)

		conversations := v1.Group("/conversations/:conversation_id")
		{
			conversations.Post("/files", r.handlerTransport.UploadFileHandler.Handle)
			conversations.Get("/files/:hash", r.handlerTransport.DownloadFileHandler.Handle)
			conversations.Post("/messages", r.handlerTransport.SendMessageHandler.Handle)
		}

		v1.Post("/security/check", r.handlerTransport.SecurityCheckHandler.Handle)
	}
	return nil
}
