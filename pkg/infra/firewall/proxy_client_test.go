package firewall_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/firewall"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/httpx"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creds = security.Credentials{AimGuardKey: "guard-secret", AprismInferenceKey: "detector-secret"}

func newClient(t *testing.T, opts ...firewall.Option) (firewall.ProxyClient, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opts = append([]firewall.Option{firewall.WithHTTPClient(&http.Client{Timeout: 5 * time.Second})}, opts...)
	return firewall.NewSecurityProxyClient(logger, creds, security.NewProviderSelector(creds, false), opts...), hook
}

func userMessages(text string) []message.EndpointMessage {
	return []message.EndpointMessage{{From: message.FromUser, Content: message.TextContent(text)}}
}

func TestSecurityProxyClient_Call(t *testing.T) {
	t.Run("disabled config is skipped without I/O", func(t *testing.T) {
		client, _ := newClient(t)
		res := client.Call(context.Background(), userMessages("hi"), &security.Config{Enabled: false, URL: "http://127.0.0.1:1"})
		assert.Equal(t, security.StatusSkipped, res.Status)
		assert.Nil(t, res.Timing)
		assert.Nil(t, res.Data)

		res = client.Call(context.Background(), userMessages("hi"), nil)
		assert.Equal(t, security.StatusSkipped, res.Status)
	})

	t.Run("empty url returns the dummy response after the delay", func(t *testing.T) {
		client, _ := newClient(t)
		start := time.Now()
		res := client.Call(context.Background(), userMessages("hello"), &security.Config{Enabled: true, Provider: security.ProviderAIM})

		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
		assert.True(t, res.IsDummy)
		assert.Empty(t, res.Error)
		assert.GreaterOrEqual(t, res.ResponseTimeMs, int64(100))
		content, ok := res.Completion.FirstContent()
		require.True(t, ok)
		assert.Contains(t, content, "hello")
	})

	t.Run("dummy delay honours cancellation", func(t *testing.T) {
		client, _ := newClient(t, firewall.WithDummyDelay(time.Minute))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		res := client.Call(ctx, userMessages("hello"), &security.Config{Enabled: true, Provider: security.ProviderAIM})
		assert.Equal(t, security.StatusTimeout, res.Status)
		assert.NotEmpty(t, res.Error)
		assert.Nil(t, res.Data)
	})

	t.Run("sends the translated AIM request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "AIM", r.Header.Get("x-external-api"))
			assert.Equal(t, "guard-secret", r.Header.Get("x-aim-guard-key"))
			assert.Equal(t, "both", r.Header.Get("x-aim-guard-type"))
			assert.Empty(t, r.Header.Get("x-aprism-inference-key"))

			var body struct {
				Model    string `json:"model"`
				Stream   bool   `json:"stream"`
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, security.PlaceholderModel, body.Model)
			assert.False(t, body.Stream)
			if assert.Len(t, body.Messages, 1) {
				assert.Equal(t, "user", body.Messages[0].Role)
				assert.Equal(t, "hello", body.Messages[0].Content)
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi!"}, "finish_reason": "stop"}],
				"security_proxied_data": {
					"input_security_api_response": {"status": "success", "data": {"action": "NONE", "detected_items_count": 0}},
					"output_security_api_response": {"status": "success", "data": {"action": "MASKING", "masked_text": "h*!"}}
				}
			}`) //nolint:errcheck
		}))
		defer server.Close()

		client, _ := newClient(t)
		msgs := []message.EndpointMessage{{
			From: message.FromUser,
			Content: message.PartsContent(
				message.TextPart("hello"),
				message.FilePartFrom(message.File{Type: message.FileTypeBase64, Mime: "application/pdf", Value: "AA=="}),
			),
		}}
		res := client.Call(context.Background(), msgs, &security.Config{
			Enabled:      true,
			URL:          server.URL + "/",
			Provider:     security.ProviderAIM,
			AimGuardType: security.GuardBoth,
		})

		require.Equal(t, security.StatusSuccess, res.Status, res.Error)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		require.NotNil(t, res.Data)
		assert.Equal(t, "NONE", *res.Data.InputLeg().Action())
		assert.Equal(t, "h*!", *res.Data.OutputLeg().MaskedText())
		require.NotNil(t, res.Data.AimGuardDetails)
		content, _ := res.Completion.FirstContent()
		assert.Equal(t, "hi!", content)
		require.NotNil(t, res.Timing)
	})

	t.Run("APRISM receives structured content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "detector-secret", r.Header.Get("x-aprism-inference-key"))
			assert.Equal(t, "identifier", r.Header.Get("x-aprism-api-type"))
			var body struct {
				Messages []struct {
					Content []map[string]any `json:"content"`
				} `json:"messages"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if assert.Len(t, body.Messages, 1) {
				assert.Len(t, body.Messages[0].Content, 2)
			}
			_, _ = io.WriteString(w, `{"action": "BLOCKING"}`) //nolint:errcheck
		}))
		defer server.Close()

		client, _ := newClient(t)
		msgs := []message.EndpointMessage{{
			From: message.FromUser,
			Content: message.PartsContent(
				message.TextPart("look"),
				message.FilePartFrom(message.File{Type: message.FileTypeBase64, Mime: "image/png", Value: "AA=="}),
			),
		}}
		res := client.Call(context.Background(), msgs, &security.Config{
			Enabled:       true,
			URL:           server.URL,
			Provider:      security.ProviderAprism,
			AprismAPIType: security.AprismIdentifier,
		})
		require.Equal(t, security.StatusSuccess, res.Status, res.Error)
		assert.Equal(t, "BLOCKING", *res.Data.InputLeg().Action())
		assert.Nil(t, res.Completion)
	})

	t.Run("non-2xx becomes an error with a truncated snippet", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "internal error") //nolint:errcheck
		}))
		defer server.Close()

		client, _ := newClient(t)
		res := client.Call(context.Background(), userMessages("x"), &security.Config{Enabled: true, URL: server.URL, Provider: security.ProviderAIM})
		assert.Equal(t, security.StatusError, res.Status)
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.Contains(t, res.Error, "500")
		assert.Contains(t, res.Error, "internal error")
		assert.Nil(t, res.Data)
	})

	t.Run("long error bodies are cut at 500 characters", func(t *testing.T) {
		long := strings.Repeat("e", 2000)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, long) //nolint:errcheck
		}))
		defer server.Close()

		client, hook := newClient(t)
		res := client.Call(context.Background(), userMessages("x"), &security.Config{Enabled: true, URL: server.URL, Provider: security.ProviderAIM})
		assert.Equal(t, security.StatusError, res.Status)
		assert.Contains(t, res.Error, strings.Repeat("e", 500))
		assert.NotContains(t, res.Error, strings.Repeat("e", 501))
		for _, entry := range hook.AllEntries() {
			if snippet, ok := entry.Data["error_text"].(string); ok {
				assert.LessOrEqual(t, len(snippet), 500)
			}
		}
	})

	t.Run("malformed JSON is an error, not a panic", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "{not json") //nolint:errcheck
		}))
		defer server.Close()

		client, _ := newClient(t)
		res := client.Call(context.Background(), userMessages("x"), &security.Config{Enabled: true, URL: server.URL, Provider: security.ProviderAIM})
		assert.Equal(t, security.StatusError, res.Status)
		assert.Contains(t, res.Error, "invalid security response")
	})

	t.Run("connection failures become errors", func(t *testing.T) {
		client, _ := newClient(t)
		res := client.Call(context.Background(), userMessages("x"), &security.Config{Enabled: true, URL: "http://127.0.0.1:1", Provider: security.ProviderAIM})
		assert.Equal(t, security.StatusError, res.Status)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("deadline becomes a timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		client, _ := newClient(t, firewall.WithHTTPClient(httpx.NewFastHTTPClient()))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		res := client.Call(ctx, userMessages("x"), &security.Config{Enabled: true, URL: server.URL, Provider: security.ProviderAIM})
		assert.Equal(t, security.StatusTimeout, res.Status)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("secrets never reach the logs", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{}`) //nolint:errcheck
		}))
		defer server.Close()

		client, hook := newClient(t)
		_ = client.Call(context.Background(), userMessages("x"), &security.Config{Enabled: true, URL: server.URL, Provider: security.ProviderAprism})
		require.NotEmpty(t, hook.AllEntries())
		for _, entry := range hook.AllEntries() {
			line, err := entry.String()
			require.NoError(t, err)
			assert.NotContains(t, line, "detector-secret")
			assert.NotContains(t, line, "guard-secret")
		}
	})

	t.Run("open breaker reports an error without calling out", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client, _ := newClient(t, firewall.WithBreakerFactory(func(endpoint string) httpx.CircuitBreaker {
			return httpx.NewCircuitBreaker(endpoint, time.Minute, 1)
		}))
		cfg := &security.Config{Enabled: true, URL: server.URL, Provider: security.ProviderAIM}
		first := client.Call(context.Background(), userMessages("x"), cfg)
		assert.Equal(t, http.StatusBadGateway, first.StatusCode)

		second := client.Call(context.Background(), userMessages("x"), cfg)
		assert.Equal(t, security.StatusError, second.Status)
		assert.Contains(t, second.Error, "circuit breaker is open")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("an open breaker only affects its own endpoint", func(t *testing.T) {
		var failing, healthy atomic.Int32
		broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			failing.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer broken.Close()
		ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			healthy.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"security_proxied_data":{}}`)
		}))
		defer ok.Close()

		client, _ := newClient(t, firewall.WithBreakerFactory(func(endpoint string) httpx.CircuitBreaker {
			return httpx.NewCircuitBreaker(endpoint, time.Minute, 5)
		}))
		brokenCfg := &security.Config{Enabled: true, URL: broken.URL, Provider: security.ProviderAIM}
		for i := 0; i < 5; i++ {
			res := client.Call(context.Background(), userMessages("x"), brokenCfg)
			assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
		}
		tripped := client.Call(context.Background(), userMessages("x"), &security.Config{Enabled: true, URL: broken.URL + "/", Provider: security.ProviderAIM})
		assert.Contains(t, tripped.Error, "circuit breaker is open")
		assert.Equal(t, int32(5), failing.Load())

		res := client.Call(context.Background(), userMessages("x"), &security.Config{Enabled: true, URL: ok.URL, Provider: security.ProviderAIM})
		assert.Equal(t, security.StatusSuccess, res.Status)
		assert.Empty(t, res.Error)
		assert.Equal(t, int32(1), healthy.Load())
	})
}
