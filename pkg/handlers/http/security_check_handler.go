package http

import (
	"context"
	"errors"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/app/preprocess"
	"github.com/NeuralTrust/SecurityProxy/pkg/common"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/NeuralTrust/SecurityProxy/pkg/handlers/http/request"
	"github.com/NeuralTrust/SecurityProxy/pkg/handlers/http/response"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/firewall"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type securityCheckHandler struct {
	logger       *logrus.Logger
	preprocessor preprocess.Preprocessor
	resolver     *security.Resolver
	proxy        firewall.ProxyClient
	global       *security.Settings
	callTimeout  time.Duration
}

func NewSecurityCheckHandler(
	logger *logrus.Logger,
	preprocessor preprocess.Preprocessor,
	resolver *security.Resolver,
	proxy firewall.ProxyClient,
	global *security.Settings,
	callTimeout time.Duration,
) Handler {
	return &securityCheckHandler{
		logger:       logger,
		preprocessor: preprocessor,
		resolver:     resolver,
		proxy:        proxy,
		global:       global,
		callTimeout:  callTimeout,
	}
}

// Handle @Summary Run a single security proxy call
// @Description Resolves the settings, calls the security proxy once and returns the typed result with the interpreted actions
// @Tags Security
// @Accept json
// @Produce json
// @Param request body request.SecurityCheckRequest true "Messages and settings"
// @Success 200 {object} response.SecurityCheckResponse "Call result"
// @Failure 502 {object} response.SecurityCheckResponse "Proxy error"
// @Failure 504 {object} response.SecurityCheckResponse "Proxy timeout"
// @Router /api/v1/security/check [post]
func (h *securityCheckHandler) Handle(c *fiber.Ctx) error {
	var req request.SecurityCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.ConversationID == "" {
		req.ConversationID = c.Get(common.ConversationIDHeader)
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	msgs, err := h.preprocessor.Preprocess(c.Context(), req.ConversationID, req.Messages)
	if err != nil {
		if errors.Is(err, file.ErrFileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to preprocess messages"})
	}

	global := decodeSettings(h.logger, "globalSettings", req.GlobalSettings)
	if global == nil {
		global = h.global
	}
	cfg := h.resolver.Resolve(decodeSettings(h.logger, "settings", req.Settings), global)
	if cfg == nil {
		return c.Status(fiber.StatusOK).JSON(response.SecurityCheckResponse{
			Provider: security.ProviderNone,
			Result:   security.CallResult{Status: security.StatusSkipped},
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.callTimeout)
	defer cancel()
	res := h.proxy.Call(ctx, msgs, cfg)

	out := response.SecurityCheckResponse{Provider: cfg.Provider, Result: res}
	switch res.Status {
	case security.StatusError:
		return c.Status(fiber.StatusBadGateway).JSON(out)
	case security.StatusTimeout:
		return c.Status(fiber.StatusGatewayTimeout).JSON(out)
	}
	if in := res.Data.InputLeg(); in != nil {
		d := security.Interpret(in.Action(), in.MaskedText())
		out.Input = &d
	}
	if o := res.Data.OutputLeg(); o != nil {
		d := security.Interpret(o.Action(), o.MaskedText())
		out.Output = &d
	}
	return c.Status(fiber.StatusOK).JSON(out)
}
