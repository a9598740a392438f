package mocks

import (
	"context"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/stretchr/testify/mock"
)

type Preprocessor struct {
	mock.Mock
}

func (m *Preprocessor) Preprocess(ctx context.Context, conversationID string, msgs []message.Message) ([]message.EndpointMessage, error) {
	args := m.Called(ctx, conversationID, msgs)
	out, _ := args.Get(0).([]message.EndpointMessage) //nolint:errcheck
	return out, args.Error(1)
}
