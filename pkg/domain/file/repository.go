package file

import "context"

//go:generate mockery --name=Repository --dir=. --output=./mocks --filename=file_repository_mock.go --case=underscore --with-expecter
type Repository interface {
	Put(ctx context.Context, conversationID, hash string, f StoredFile) error
	Get(ctx context.Context, conversationID, hash string) (*StoredFile, error)
}
