package mocks

import (
	"context"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/stretchr/testify/mock"
)

type Client struct {
	mock.Mock
}

func (m *Client) Complete(ctx context.Context, cfg security.LLMConfig, msgs []message.EndpointMessage) (*message.ChatCompletion, error) {
	args := m.Called(ctx, cfg, msgs)
	completion, _ := args.Get(0).(*message.ChatCompletion) //nolint:errcheck
	return completion, args.Error(1)
}
