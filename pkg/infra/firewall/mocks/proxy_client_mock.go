package mocks

import (
	"context"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/stretchr/testify/mock"
)

type ProxyClient struct {
	mock.Mock
}

func (m *ProxyClient) Call(ctx context.Context, msgs []message.EndpointMessage, cfg *security.Config) security.CallResult {
	args := m.Called(ctx, msgs, cfg)
	res, _ := args.Get(0).(security.CallResult) //nolint:errcheck
	return res
}
