package mocks

import (
	"context"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/stretchr/testify/mock"
)

type Repository struct {
	mock.Mock
}

func (m *Repository) Put(ctx context.Context, conversationID, hash string, f file.StoredFile) error {
	args := m.Called(ctx, conversationID, hash, f)
	return args.Error(0)
}

func (m *Repository) Get(ctx context.Context, conversationID, hash string) (*file.StoredFile, error) {
	args := m.Called(ctx, conversationID, hash)
	stored, _ := args.Get(0).(*file.StoredFile) //nolint:errcheck
	return stored, args.Error(1)
}
