package mocks

import (
	"context"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/stretchr/testify/mock"
)

type Uploader struct {
	mock.Mock
}

func (m *Uploader) Upload(ctx context.Context, conversationID, name, mime string, data []byte) (*message.File, error) {
	args := m.Called(ctx, conversationID, name, mime, data)
	f, _ := args.Get(0).(*message.File) //nolint:errcheck
	return f, args.Error(1)
}
