package firewall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/httpx"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

const (
	chatCompletionsPath = "v1/chat/completions"
	maxErrorSnippet     = 500
	maxResponseBody     = 10 * 1024 * 1024
)

var errUpstreamStatus = errors.New("security api returned server error")

type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []security.WireMessage `json:"messages"`
	Stream   bool                   `json:"stream"`
}

type SecurityProxyClient struct {
	client     httpx.Client
	logger     *logrus.Logger
	creds      security.Credentials
	selector   *security.ProviderSelector
	newBreaker BreakerFactory
	breakers   sync.Map
	dummyDelay time.Duration
	now        func() time.Time
	parsers    fastjson.ParserPool
}

func NewSecurityProxyClient(
	logger *logrus.Logger,
	creds security.Credentials,
	selector *security.ProviderSelector,
	opts ...Option,
) ProxyClient {
	if selector == nil {
		selector = security.NewProviderSelector(creds, false)
	}
	c := &SecurityProxyClient{
		client:     &http.Client{},
		logger:     logger,
		creds:      creds,
		selector:   selector,
		dummyDelay: security.DummyDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.newBreaker == nil {
		c.newBreaker = func(endpoint string) httpx.CircuitBreaker {
			return httpx.NewCircuitBreaker("security-proxy "+endpoint, 30*time.Second, 5, httpx.WithIgnoredErrors(IsCancellation))
		}
	}
	return c
}

// breakerFor returns the breaker guarding one endpoint. Endpoints come from
// per-conversation settings, so a failing endpoint never opens the circuit
// for the others.
func (c *SecurityProxyClient) breakerFor(rawURL string) httpx.CircuitBreaker {
	endpoint := normalizeEndpoint(rawURL)
	b, ok := c.breakers.Load(endpoint)
	if !ok {
		b, _ = c.breakers.LoadOrStore(endpoint, c.newBreaker(endpoint))
	}
	breaker, _ := b.(httpx.CircuitBreaker) //nolint:errcheck
	return breaker
}

func (c *SecurityProxyClient) Call(ctx context.Context, msgs []message.EndpointMessage, cfg *security.Config) security.CallResult {
	if cfg == nil || !cfg.Enabled {
		return security.CallResult{Status: security.StatusSkipped}
	}
	provider := c.selector.Select(cfg)
	var res security.CallResult
	if strings.TrimSpace(cfg.URL) == "" {
		res = c.dummy(ctx, msgs)
	} else {
		res = c.call(ctx, msgs, cfg, provider)
	}
	c.observe(provider, res)
	return res
}

func (c *SecurityProxyClient) dummy(ctx context.Context, msgs []message.EndpointMessage) security.CallResult {
	start := c.now()
	timer := time.NewTimer(c.dummyDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return c.failure(ctx, ctx.Err(), start, 0)
	}
	elapsed := c.now().Sub(start)
	if elapsed < c.dummyDelay {
		elapsed = c.dummyDelay
	}
	c.logger.WithField("delay_ms", elapsed.Milliseconds()).Debug("security api url not configured, returning dummy response")
	return security.NewDummyResult(msgs, start, elapsed)
}

func (c *SecurityProxyClient) call(
	ctx context.Context,
	msgs []message.EndpointMessage,
	cfg *security.Config,
	provider security.Provider,
) security.CallResult {
	start := c.now()
	url := joinURL(cfg.URL, chatCompletionsPath)

	body, err := json.Marshal(chatRequest{
		Model:    security.PlaceholderModel,
		Messages: security.Translate(msgs, provider),
		Stream:   false,
	})
	if err != nil {
		return c.failure(ctx, fmt.Errorf("failed to marshal security request: %w", err), start, 0)
	}
	headers := security.BuildHeaders(cfg, provider, c.creds)

	c.logger.WithFields(logrus.Fields{
		"url":           url,
		"provider":      provider,
		"headers":       security.RedactHeaders(headers),
		"message_count": len(msgs),
	}).Debug("sending security api request")

	var (
		statusCode int
		respBody   []byte
	)
	err = c.breakerFor(cfg.URL).Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create security request: %w", err)
		}
		req.Header = headers.Clone()

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close() //nolint:errcheck

		statusCode = resp.StatusCode
		respBody, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return fmt.Errorf("failed to read security response: %w", err)
		}
		if statusCode >= http.StatusInternalServerError {
			return errUpstreamStatus
		}
		return nil
	})
	if err != nil && !errors.Is(err, errUpstreamStatus) {
		return c.failure(ctx, err, start, statusCode)
	}

	end := c.now()
	if statusCode < 200 || statusCode > 299 {
		snippet := truncate(string(respBody), maxErrorSnippet)
		c.logger.WithFields(logrus.Fields{
			"status_code": statusCode,
			"url":         url,
			"provider":    provider,
			"error_text":  snippet,
		}).Warn("security api request failed")
		return security.CallResult{
			Status:         security.StatusError,
			StatusCode:     statusCode,
			Error:          fmt.Sprintf("Security API error: %d %s", statusCode, snippet),
			Timing:         timing(start, end),
			ResponseTimeMs: end.Sub(start).Milliseconds(),
		}
	}

	res, err := c.decode(respBody, provider)
	if err != nil {
		return c.failure(ctx, err, start, statusCode)
	}
	res.StatusCode = statusCode
	res.Timing = timing(start, end)
	res.ResponseTimeMs = end.Sub(start).Milliseconds()

	c.logger.WithFields(logrus.Fields{
		"provider":         provider,
		"has_proxied_data": !res.Data.Empty(),
		"response_time_ms": res.ResponseTimeMs,
	}).Debug("security api request succeeded")
	return res
}

// decode reads the moderation payload from security_proxied_data, or from the
// whole body when the proxy does not nest it.
func (c *SecurityProxyClient) decode(body []byte, provider security.Provider) (security.CallResult, error) {
	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return security.CallResult{}, fmt.Errorf("invalid security response: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return security.CallResult{}, fmt.Errorf("invalid security response: expected object, got %s", v.Type())
	}

	raw, nested := body, false
	if pd := v.Get(security.ProxiedDataField); pd != nil && pd.Type() == fastjson.TypeObject {
		raw, nested = pd.MarshalTo(nil), true
	}
	data, err := security.DecodeProxiedData(raw, nested)
	if err != nil {
		return security.CallResult{}, fmt.Errorf("invalid security payload: %w", err)
	}
	data.Normalize(provider)

	res := security.CallResult{Status: security.StatusSuccess, Data: data}
	if v.Exists("choices") {
		var completion message.ChatCompletion
		if err := json.Unmarshal(body, &completion); err == nil {
			res.Completion = &completion
		}
	}
	return res, nil
}

func (c *SecurityProxyClient) failure(ctx context.Context, err error, start time.Time, statusCode int) security.CallResult {
	end := c.now()
	status := security.StatusError
	if httpx.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		status = security.StatusTimeout
	}
	if !IsCancellation(err) {
		c.logger.WithError(err).WithField("status", status).Error("security api request exception")
	}
	return security.CallResult{
		Status:         status,
		StatusCode:     statusCode,
		Error:          err.Error(),
		Timing:         timing(start, end),
		ResponseTimeMs: end.Sub(start).Milliseconds(),
	}
}

func (c *SecurityProxyClient) observe(provider security.Provider, res security.CallResult) {
	label := string(provider)
	if res.IsDummy {
		label = "dummy"
	}
	prometheus.SecurityCallTotal.WithLabelValues(label, string(res.Status)).Inc()
	if prometheus.Config.EnableLatency && res.Status != security.StatusSkipped {
		prometheus.SecurityCallLatency.WithLabelValues(label).Observe(float64(res.ResponseTimeMs))
	}
}

// normalizeEndpoint reduces a base URL to scheme, host and path without the
// trailing slash, so spellings of one endpoint share a breaker.
func normalizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + strings.TrimRight(u.Path, "/")
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func timing(start, end time.Time) *security.CallTiming {
	return &security.CallTiming{
		CallStart: start.UnixMilli(),
		CallEnd:   end.UnixMilli(),
		Duration:  end.Sub(start).Milliseconds(),
	}
}

// IsCancellation reports a caller-side cancellation, which is not a proxy fault.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
