package middleware

import (
	"github.com/NeuralTrust/SecurityProxy/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type requestIDMiddleware struct{}

func NewRequestIDMiddleware() Middleware {
	return &requestIDMiddleware{}
}

// Middleware reuses an incoming X-Request-Id or assigns a new one, and echoes
// it on the response.
func (m *requestIDMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(common.RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(common.TraceIdKey, id)
		c.Set(common.RequestIDHeader, id)
		return c.Next()
	}
}
