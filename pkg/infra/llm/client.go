package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	ErrModelCallFailed = errors.New("model call failed")
	ErrModelRequired   = errors.New("model is required")
	ErrNoChoices       = errors.New("no completions returned")
)

// Client calls an OpenAI compatible chat completion backend directly. It is
// used when the security proxy is disabled or unavailable.
//
//go:generate mockery --name=Client --dir=. --output=./mocks --filename=llm_client_mock.go --case=underscore --with-expecter
type Client interface {
	Complete(ctx context.Context, cfg security.LLMConfig, msgs []message.EndpointMessage) (*message.ChatCompletion, error)
}

type Option func(*client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

type client struct {
	logger     *logrus.Logger
	httpClient *http.Client
	clientPool sync.Map
	sf         singleflight.Group
}

func NewClient(logger *logrus.Logger, opts ...Option) Client {
	c := &client{
		logger:     logger,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Complete(ctx context.Context, cfg security.LLMConfig, msgs []message.EndpointMessage) (*message.ChatCompletion, error) {
	if cfg.Model == "" {
		return nil, ErrModelRequired
	}
	params := openai.ChatCompletionNewParams{
		Model:    cfg.Model,
		Messages: toParams(msgs),
	}

	resp, err := c.getOrCreateClient(cfg).Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.WithError(err).WithField("base_url", cfg.BaseURL).Error("model request failed")
		return nil, fmt.Errorf("%w: %w", ErrModelCallFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrModelCallFailed, ErrNoChoices)
	}
	return fromResponse(resp), nil
}

func (c *client) getOrCreateClient(cfg security.LLMConfig) *openai.Client {
	key := cfg.BaseURL + "\x00" + cfg.APIKey
	if v, ok := c.clientPool.Load(key); ok {
		if cli, ok := v.(*openai.Client); ok {
			return cli
		}
	}
	v, _, _ := c.sf.Do(key, func() (any, error) {
		if v, ok := c.clientPool.Load(key); ok {
			return v, nil
		}
		opts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithHTTPClient(c.httpClient),
			option.WithMaxRetries(0),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		cli := openai.NewClient(opts...)
		c.clientPool.Store(key, &cli)
		return &cli, nil
	})
	if cli, ok := v.(*openai.Client); ok {
		return cli
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &cli
}

func toParams(msgs []message.EndpointMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.From {
		case message.FromUser:
			if m.Content.IsStructured() {
				out = append(out, openai.UserMessage(toContentParts(m.Content.Parts())))
				continue
			}
			out = append(out, openai.UserMessage(m.Content.Text()))
		case message.FromAssistant:
			out = append(out, openai.AssistantMessage(m.Content.String()))
		default:
			out = append(out, openai.SystemMessage(m.Content.String()))
		}
	}
	return out
}

func toContentParts(parts []message.Part) []openai.ChatCompletionContentPartUnionParam {
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.Type == message.PartTypeImageURL && p.ImageURL != nil:
			out = append(out, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: p.ImageURL.URL}))
		case p.Type == message.PartTypeFile && p.File != nil:
			out = append(out, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
				FileData: openai.String(p.File.FileData),
				Filename: openai.String(p.File.Filename),
			}))
		case p.Type == message.PartTypeText:
			out = append(out, openai.TextContentPart(p.Text))
		}
	}
	return out
}

func fromResponse(resp *openai.ChatCompletion) *message.ChatCompletion {
	out := &message.ChatCompletion{
		ID:      resp.ID,
		Object:  string(resp.Object),
		Created: resp.Created,
		Model:   resp.Model,
		Choices: make([]message.Choice, 0, len(resp.Choices)),
		Usage: &message.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, ch := range resp.Choices {
		choice := message.Choice{
			Index:        int(ch.Index),
			Message:      message.ChoiceMessage{Role: string(ch.Message.Role), Content: ch.Message.Content},
			FinishReason: ch.FinishReason,
		}
		if ch.Message.Refusal != "" {
			refusal := ch.Message.Refusal
			choice.Message.Refusal = &refusal
		}
		out.Choices = append(out.Choices, choice)
	}
	return out
}
