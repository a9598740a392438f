package mocks

import (
	"context"

	"github.com/NeuralTrust/SecurityProxy/pkg/app/chat"
	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

func (m *Service) Run(ctx context.Context, req chat.Request) (*chat.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*chat.Result) //nolint:errcheck
	return res, args.Error(1)
}
