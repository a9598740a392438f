package router

import "github.com/gofiber/fiber/v2"

// ServerRouter registers one group of endpoints on the service's fiber app.
// BaseServer applies every router it is given before listening.
type ServerRouter interface {
	BuildRoutes(app *fiber.App) error
}
