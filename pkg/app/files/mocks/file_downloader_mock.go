package mocks

import (
	"context"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/stretchr/testify/mock"
)

type Downloader struct {
	mock.Mock
}

func (m *Downloader) Download(ctx context.Context, conversationID, hash string) (*message.File, error) {
	args := m.Called(ctx, conversationID, hash)
	f, _ := args.Get(0).(*message.File) //nolint:errcheck
	return f, args.Error(1)
}
