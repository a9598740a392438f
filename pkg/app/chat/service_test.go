package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/app/chat"
	preprocessMocks "github.com/NeuralTrust/SecurityProxy/pkg/app/preprocess/mocks"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/firewall"
	firewallMocks "github.com/NeuralTrust/SecurityProxy/pkg/infra/firewall/mocks"
	llmMocks "github.com/NeuralTrust/SecurityProxy/pkg/infra/llm/mocks"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

type fixture struct {
	pre   *preprocessMocks.Preprocessor
	proxy *firewallMocks.ProxyClient
	llm   *llmMocks.Client
}

func newFixture() *fixture {
	return &fixture{
		pre:   new(preprocessMocks.Preprocessor),
		proxy: new(firewallMocks.ProxyClient),
		llm:   new(llmMocks.Client),
	}
}

func (f *fixture) service(opts ...chat.Option) chat.Service {
	defaults := []chat.Option{chat.WithLLMDefaults(security.LLMConfig{
		BaseURL: "https://llm.local/v1",
		APIKey:  "sk-default",
		Model:   "test-model",
	})}
	return chat.NewService(logrus.New(), f.pre, security.NewResolver(nil), f.proxy, f.llm, append(defaults, opts...)...)
}

func completion(content string) *message.ChatCompletion {
	return &message.ChatCompletion{
		ID:      "cmpl-1",
		Object:  "chat.completion",
		Model:   "test-model",
		Choices: []message.Choice{{Message: message.ChoiceMessage{Role: "assistant", Content: content}, FinishReason: "stop"}},
	}
}

func legWith(action string, masked *string) *security.LegResponse {
	return &security.LegResponse{Status: security.StatusSuccess, Data: &security.LegData{Action: &action, MaskedText: masked}}
}

func statuses(updates []message.StatusUpdate) []message.UpdateStatus {
	out := make([]message.UpdateStatus, len(updates))
	for i, u := range updates {
		out[i] = u.Status
	}
	return out
}

var (
	userMsgs     = []message.Message{{From: message.FromUser, Content: "my email is a@b.c"}}
	endpointMsgs = []message.EndpointMessage{{From: message.FromUser, Content: message.TextContent("my email is a@b.c")}}
	aimOverride  = &security.Settings{ExternalAPI: strPtr("AIM"), URL: strPtr("http://proxy.local")}
)

func TestService_Run(t *testing.T) {
	t.Run("conversation id is required", func(t *testing.T) {
		f := newFixture()
		_, err := f.service().Run(context.Background(), chat.Request{Messages: userMsgs})
		assert.ErrorIs(t, err, chat.ErrConversationRequired)
	})

	t.Run("preprocessing failures abort the round", func(t *testing.T) {
		f := newFixture()
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(nil, file.ErrFileNotFound)
		res, err := f.service().Run(context.Background(), chat.Request{ConversationID: "conv", Messages: userMsgs})
		assert.ErrorIs(t, err, file.ErrFileNotFound)
		require.NotNil(t, res)
		require.NotNil(t, res.Debug.HandlerError)
		assert.Equal(t, "preprocess", res.Debug.HandlerError.Stage)
		assert.Equal(t, message.StatusError, res.Updates[len(res.Updates)-1].Status)
		f.proxy.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
		f.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider none calls the model directly", func(t *testing.T) {
		f := newFixture()
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
		f.llm.On("Complete", mock.Anything, mock.Anything, endpointMsgs).Return(completion("hello"), nil)

		res, err := f.service().Run(context.Background(), chat.Request{ConversationID: "conv", Messages: userMsgs})
		require.NoError(t, err)
		assert.Equal(t, "hello", res.Message.Content)
		assert.Equal(t, message.FromAssistant, res.Message.From)
		assert.NotEmpty(t, res.Message.ID)
		assert.Equal(t, security.ProviderNone, res.Provider)
		assert.Equal(t, []message.UpdateStatus{
			message.StatusStarted, message.StatusLlmRequesting, message.StatusLlmResponded, message.StatusFinished,
		}, statuses(res.Updates))
		require.NotNil(t, res.Debug)
		assert.Nil(t, res.Debug.Timing.InputSecurityAPICallStart)
		assert.NotNil(t, res.Debug.Timing.LLMCallStart)
		assert.Equal(t, "hello", res.Debug.FinalResponse)
		f.proxy.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("llm override settings reach the direct call", func(t *testing.T) {
		f := newFixture()
		override := &security.Settings{LLMAPIURL: strPtr("https://override.local/v1"), LLMAPIKey: strPtr("sk-override")}
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
		f.llm.On("Complete", mock.Anything, security.LLMConfig{
			BaseURL: "https://override.local/v1",
			APIKey:  "sk-override",
			Model:   "test-model",
		}, endpointMsgs).Return(completion("ok"), nil)

		_, err := f.service().Run(context.Background(), chat.Request{ConversationID: "conv", Messages: userMsgs, Override: override})
		require.NoError(t, err)
		f.llm.AssertExpectations(t)
	})

	t.Run("input blocking returns the refusal without a model call", func(t *testing.T) {
		f := newFixture()
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
		f.proxy.On("Call", mock.Anything, endpointMsgs, mock.MatchedBy(func(cfg *security.Config) bool {
			return cfg.Provider == security.ProviderAIM && cfg.URL == "http://proxy.local"
		})).Return(security.CallResult{
			Status: security.StatusSuccess,
			Data:   &security.ProxiedData{InputSecurityAPIResponse: legWith("BLOCKING", nil)},
		})

		res, err := f.service().Run(context.Background(), chat.Request{ConversationID: "conv", Messages: userMsgs, Override: aimOverride})
		require.NoError(t, err)
		assert.True(t, res.Blocked)
		assert.Equal(t, chat.BlockedMessage, res.Message.Content)
		assert.Equal(t, security.ProviderAIM, res.Provider)
		require.NotNil(t, res.Debug.InputSecurityAPIResponse)
		f.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("output masking replaces the completion content", func(t *testing.T) {
		f := newFixture()
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
		f.proxy.On("Call", mock.Anything, endpointMsgs, mock.Anything).Return(security.CallResult{
			Status: security.StatusSuccess,
			Data: &security.ProxiedData{
				InputSecurityAPIResponse:  legWith("MASKING", strPtr("my email is [EMAIL]")),
				OutputSecurityAPIResponse: legWith("MASKING", strPtr("reply to [EMAIL]")),
			},
			Completion: completion("reply to a@b.c"),
		})

		res, err := f.service().Run(context.Background(), chat.Request{ConversationID: "conv", Messages: userMsgs, Override: aimOverride})
		require.NoError(t, err)
		assert.False(t, res.Blocked)
		assert.True(t, res.Masked)
		assert.Equal(t, "reply to [EMAIL]", res.Message.Content)
		assert.Equal(t, "reply to [EMAIL]", res.Debug.FinalResponse)
		assert.Equal(t, []message.UpdateStatus{
			message.StatusStarted, message.StatusSecurityApiRequesting, message.StatusSecurityApiResponded, message.StatusFinished,
		}, statuses(res.Updates))
	})

	t.Run("output blocking replaces the completion with the refusal", func(t *testing.T) {
		f := newFixture()
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
		f.proxy.On("Call", mock.Anything, endpointMsgs, mock.Anything).Return(security.CallResult{
			Status: security.StatusSuccess,
			Data: &security.ProxiedData{
				InputSecurityAPIResponse:  legWith("NONE", nil),
				OutputSecurityAPIResponse: legWith("BLOCKING", nil),
			},
			Completion: completion("secret"),
		})

		res, err := f.service().Run(context.Background(), chat.Request{ConversationID: "conv", Messages: userMsgs, Override: aimOverride})
		require.NoError(t, err)
		assert.True(t, res.Blocked)
		assert.Equal(t, chat.BlockedMessage, res.Message.Content)
	})

	t.Run("proxy failures degrade to a direct model call", func(t *testing.T) {
		f := newFixture()
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
		f.proxy.On("Call", mock.Anything, endpointMsgs, mock.Anything).Return(security.CallResult{
			Status:     security.StatusError,
			StatusCode: 500,
			Error:      "Security API error: 500 internal error",
		})
		f.llm.On("Complete", mock.Anything, mock.Anything, endpointMsgs).Return(completion("fallback"), nil)

		res, err := f.service().Run(context.Background(), chat.Request{ConversationID: "conv", Messages: userMsgs, Override: aimOverride})
		require.NoError(t, err)
		assert.True(t, res.Degraded)
		assert.Equal(t, "fallback", res.Message.Content)
		require.NotNil(t, res.Debug.InputSecurityAPIError)
		assert.Contains(t, res.Debug.InputSecurityAPIError.Error, "500")
		assert.Equal(t, "Security API error: 500 internal error", res.Debug.Error)
	})

	t.Run("model failures surface after a degraded proxy call", func(t *testing.T) {
		f := newFixture()
		boom := errors.New("upstream down")
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
		f.proxy.On("Call", mock.Anything, endpointMsgs, mock.Anything).Return(security.CallResult{
			Status: security.StatusTimeout,
			Error:  "context deadline exceeded",
		})
		f.llm.On("Complete", mock.Anything, mock.Anything, endpointMsgs).Return(nil, boom)

		res, err := f.service().Run(context.Background(), chat.Request{ConversationID: "conv", Messages: userMsgs, Override: aimOverride})
		assert.ErrorIs(t, err, boom)
		require.NotNil(t, res)
		assert.True(t, res.Degraded)
		require.NotNil(t, res.Debug)
		require.NotNil(t, res.Debug.HandlerError)
		assert.Equal(t, "llm_call", res.Debug.HandlerError.Stage)
		assert.Equal(t, "upstream down", res.Debug.HandlerError.Error)
		require.NotNil(t, res.Debug.InputSecurityAPIError)
		assert.Equal(t, "context deadline exceeded", res.Debug.InputSecurityAPIError.Error)
		assert.Equal(t, []message.UpdateStatus{
			message.StatusStarted,
			message.StatusSecurityApiRequesting,
			message.StatusSecurityApiResponded,
			message.StatusLlmRequesting,
			message.StatusError,
		}, statuses(res.Updates))
	})

	t.Run("the proxy call is bounded by the call timeout", func(t *testing.T) {
		f := newFixture()
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
		f.proxy.On("Call", mock.MatchedBy(func(ctx context.Context) bool {
			deadline, ok := ctx.Deadline()
			return ok && time.Until(deadline) <= 2*time.Second
		}), endpointMsgs, mock.Anything).Return(security.CallResult{
			Status:     security.StatusSuccess,
			Data:       &security.ProxiedData{InputSecurityAPIResponse: legWith("NONE", nil)},
			Completion: completion("fine"),
		})

		res, err := f.service(chat.WithCallTimeout(2*time.Second)).Run(context.Background(), chat.Request{
			ConversationID: "conv", Messages: userMsgs, Override: aimOverride,
		})
		require.NoError(t, err)
		assert.Equal(t, "fine", res.Message.Content)
		f.proxy.AssertExpectations(t)
	})

	t.Run("global settings apply when the request has none", func(t *testing.T) {
		f := newFixture()
		f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
		f.proxy.On("Call", mock.Anything, endpointMsgs, mock.MatchedBy(func(cfg *security.Config) bool {
			return cfg.Provider == security.ProviderAprism
		})).Return(security.CallResult{
			Status:     security.StatusSuccess,
			Data:       &security.ProxiedData{},
			Completion: completion("fine"),
		})

		svc := f.service(chat.WithGlobalSettings(&security.Settings{ExternalAPI: strPtr("APRISM")}))
		res, err := svc.Run(context.Background(), chat.Request{ConversationID: "conv", Messages: userMsgs})
		require.NoError(t, err)
		assert.Equal(t, security.ProviderAprism, res.Provider)
	})
}

func TestService_RunReportsIgnoredEnabledFlag(t *testing.T) {
	f := newFixture()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f.pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)
	f.llm.On("Complete", mock.Anything, mock.Anything, endpointMsgs).Return(completion("hello"), nil)

	svc := chat.NewService(logger, f.pre, security.NewResolver(nil), f.proxy, f.llm)
	res, err := svc.Run(context.Background(), chat.Request{
		ConversationID: "conv",
		Messages:       userMsgs,
		Override:       &security.Settings{Enabled: boolPtr(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Message.Content)
	f.proxy.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Data["security_api_enabled"] == true {
			found = true
			assert.Equal(t, false, e.Data["provider_active"])
			assert.Equal(t, logrus.DebugLevel, e.Level)
		}
	}
	assert.True(t, found)
}

func TestService_RunWithDummyProxy(t *testing.T) {
	logger := logrus.New()
	pre := new(preprocessMocks.Preprocessor)
	llm := new(llmMocks.Client)
	pre.On("Preprocess", mock.Anything, "conv", userMsgs).Return(endpointMsgs, nil)

	proxy := firewall.NewSecurityProxyClient(logger, security.Credentials{}, nil, firewall.WithDummyDelay(5*time.Millisecond))
	svc := chat.NewService(logger, pre, security.NewResolver(nil), proxy, llm)

	res, err := svc.Run(context.Background(), chat.Request{
		ConversationID: "conv",
		Messages:       userMsgs,
		Override:       &security.Settings{ExternalAPI: strPtr("AIM")},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Message.Content, `Original message: "my email is a@b.c"`)
	assert.True(t, res.Debug.IsDummyResponse)
	require.NotNil(t, res.Debug.SecurityResponseTime)
	assert.GreaterOrEqual(t, *res.Debug.SecurityResponseTime, int64(5))
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}
