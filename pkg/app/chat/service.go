package chat

import (
	"context"
	"errors"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/app/preprocess"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/firewall"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/llm"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/prometheus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	BlockedMessage = "This request was blocked by the security policy."

	stagePreprocess = "preprocess"
	stageModelCall  = "llm_call"
)

var ErrConversationRequired = errors.New("conversation id is required")

type Request struct {
	ConversationID string             `json:"conversationId"`
	Messages       []message.Message  `json:"messages"`
	Override       *security.Settings `json:"-"`
	Global         *security.Settings `json:"-"`
}

type Result struct {
	Message    message.Message         `json:"message"`
	Blocked    bool                    `json:"blocked"`
	Masked     bool                    `json:"masked"`
	Degraded   bool                    `json:"degraded"`
	Provider   security.Provider       `json:"provider"`
	Updates    []message.StatusUpdate  `json:"updates"`
	Completion *message.ChatCompletion `json:"completion,omitempty"`
	Debug      *security.DebugRecord   `json:"debug"`
}

// Service runs chat rounds. When Run fails after the round has started, the
// partial Result is returned alongside the error so its Debug record survives.
//go:generate mockery --name=Service --dir=. --output=./mocks --filename=chat_service_mock.go --case=underscore --with-expecter
type Service interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

type Option func(*service)

// WithGlobalSettings sets the option bag used when a request carries none.
func WithGlobalSettings(s *security.Settings) Option {
	return func(svc *service) {
		svc.global = s
	}
}

func WithLLMDefaults(cfg security.LLMConfig) Option {
	return func(svc *service) {
		svc.llmDefaults = cfg
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(svc *service) {
		if d > 0 {
			svc.callTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *service) {
		if now != nil {
			svc.now = now
		}
	}
}

type service struct {
	logger       *logrus.Logger
	preprocessor preprocess.Preprocessor
	resolver     *security.Resolver
	proxy        firewall.ProxyClient
	llm          llm.Client
	global       *security.Settings
	llmDefaults  security.LLMConfig
	callTimeout  time.Duration
	now          func() time.Time
}

func NewService(
	logger *logrus.Logger,
	preprocessor preprocess.Preprocessor,
	resolver *security.Resolver,
	proxy firewall.ProxyClient,
	llmClient llm.Client,
	opts ...Option,
) Service {
	svc := &service{
		logger:       logger,
		preprocessor: preprocessor,
		resolver:     resolver,
		proxy:        proxy,
		llm:          llmClient,
		callTimeout:  60 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// round carries the per-request state of one Run.
type round struct {
	rec     *security.Recorder
	result  *Result
	content string
}

func (r *round) update(status message.UpdateStatus, msg string, code int) {
	r.result.Updates = append(r.result.Updates, message.StatusUpdate{Status: status, Message: msg, StatusCode: code})
}

func (s *service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.ConversationID == "" {
		return nil, ErrConversationRequired
	}
	r := &round{
		rec:    security.NewRecorder(s.now),
		result: &Result{Provider: security.ProviderNone},
	}
	r.rec.SetOriginalRequest(req.Messages)
	r.update(message.StatusStarted, "", 0)

	msgs, err := s.preprocessor.Preprocess(ctx, req.ConversationID, req.Messages)
	if err != nil {
		r.rec.RecordHandlerError(stagePreprocess, err)
		r.update(message.StatusError, err.Error(), 0)
		return s.fail(r, err)
	}

	global := req.Global
	if global == nil {
		global = s.global
	}
	cfg := s.resolver.Resolve(req.Override, global)
	llmCfg := security.ResolveLLM(req.Override, global, s.llmDefaults)

	log := s.logger.WithFields(logrus.Fields{
		"conversation_id": req.ConversationID,
		"message_count":   len(msgs),
	})
	if enabled := security.RequestedEnabled(req.Override, global); enabled != nil && *enabled != (cfg != nil) {
		log.WithFields(logrus.Fields{
			"security_api_enabled": *enabled,
			"provider_active":      cfg != nil,
		}).Debug("securityApiEnabled does not match the selected provider, the provider decides")
	}

	if cfg == nil {
		log.Debug("security proxy disabled, calling model directly")
		if err := s.direct(ctx, r, msgs, llmCfg); err != nil {
			return s.fail(r, err)
		}
		return s.finish(r), nil
	}

	r.result.Provider = cfg.Provider
	r.update(message.StatusSecurityApiRequesting, "", 0)
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	res := s.proxy.Call(callCtx, msgs, cfg)
	cancel()
	r.rec.RecordSecurityCall(res)
	r.update(message.StatusSecurityApiResponded, string(res.Status), res.StatusCode)

	if res.Failed() || res.Status == security.StatusSkipped {
		if res.Failed() {
			log.WithFields(logrus.Fields{
				"provider": cfg.Provider,
				"status":   res.Status,
				"error":    res.Error,
			}).Warn("security proxy call failed, falling back to direct model call")
			r.result.Degraded = true
		}
		if err := s.direct(ctx, r, msgs, llmCfg); err != nil {
			return s.fail(r, err)
		}
		return s.finish(r), nil
	}

	input := res.Data.InputLeg()
	if s.apply(r, security.LegInput, input) {
		log.WithField("provider", cfg.Provider).Info("request blocked by input check")
		return s.finish(r), nil
	}

	if content, ok := res.Completion.FirstContent(); ok {
		r.content = content
		r.result.Completion = res.Completion
	} else {
		log.Warn("security proxy returned no completion, calling model directly")
		if err := s.direct(ctx, r, msgs, llmCfg); err != nil {
			return s.fail(r, err)
		}
	}

	if s.apply(r, security.LegOutput, res.Data.OutputLeg()) {
		log.WithField("provider", cfg.Provider).Info("response blocked by output check")
	}
	return s.finish(r), nil
}

// apply interprets one moderation leg and reports whether the round is blocked.
func (s *service) apply(r *round, leg security.Leg, resp *security.LegResponse) bool {
	if resp == nil {
		return false
	}
	action := resp.Action()
	label := string(security.ActionNone)
	if action != nil && *action != "" {
		label = *action
	}
	prometheus.SecurityActions.WithLabelValues(string(leg), label).Inc()

	decision := security.Interpret(action, resp.MaskedText())
	if decision.ShouldBlock {
		r.result.Blocked = true
		r.content = BlockedMessage
		return true
	}
	// A masked input was already substituted by the proxy before the model saw it.
	if decision.Content != nil && leg == security.LegOutput {
		r.result.Masked = true
		r.content = *decision.Content
	}
	return false
}

func (s *service) direct(ctx context.Context, r *round, msgs []message.EndpointMessage, cfg security.LLMConfig) error {
	r.update(message.StatusLlmRequesting, "", 0)
	start := s.now()
	completion, err := s.llm.Complete(ctx, cfg, msgs)
	end := s.now()
	if prometheus.Config.EnableLatency {
		status := "success"
		if err != nil {
			status = "error"
		}
		prometheus.LLMCallLatency.WithLabelValues(status).Observe(float64(end.Sub(start).Milliseconds()))
	}
	if err != nil {
		r.rec.RecordHandlerError(stageModelCall, err)
		r.update(message.StatusError, err.Error(), 0)
		s.logger.WithError(err).Error("direct model call failed")
		return err
	}
	r.rec.RecordModelCall(start, end, completion)
	r.update(message.StatusLlmResponded, "", 0)
	r.result.Completion = completion
	r.content, _ = completion.FirstContent()
	return nil
}

func (s *service) fail(r *round, err error) (*Result, error) {
	r.result.Debug = r.rec.Finish("")
	return r.result, err
}

func (s *service) finish(r *round) *Result {
	r.update(message.StatusFinished, "", 0)
	r.result.Debug = r.rec.Finish(r.content)
	r.result.Message = message.Message{
		ID:      uuid.NewString(),
		From:    message.FromAssistant,
		Content: r.content,
	}
	return r.result
}
