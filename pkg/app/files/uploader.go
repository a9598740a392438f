package files

import (
	"context"
	"fmt"
	"strings"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/sirupsen/logrus"
)

//go:generate mockery --name=Uploader --dir=. --output=./mocks --filename=file_uploader_mock.go --case=underscore --with-expecter
type Uploader interface {
	Upload(ctx context.Context, conversationID, name, mime string, data []byte) (*message.File, error)
}

type uploader struct {
	logger *logrus.Logger
	repo   file.Repository
}

func NewUploader(logger *logrus.Logger, repo file.Repository) Uploader {
	return &uploader{logger: logger, repo: repo}
}

// Upload stores the bytes under their content hash and returns the reference
// attachment a message should carry. Uploading the same bytes twice yields the
// same reference.
func (u *uploader) Upload(ctx context.Context, conversationID, name, mime string, data []byte) (*message.File, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("%w: conversation id is required", file.ErrInvalidFileReference)
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	hash := file.Hash(data)
	err := u.repo.Put(ctx, conversationID, hash, file.StoredFile{Data: data, Mime: mime, Name: name})
	if err != nil {
		u.logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"hash":            hash,
		}).WithError(err).Error("failed to store file")
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	u.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"hash":            hash,
		"mime":            mime,
		"size":            len(data),
	}).Debug("file stored")
	return &message.File{Type: message.FileTypeHash, Name: name, Value: hash, Mime: mime}, nil
}
