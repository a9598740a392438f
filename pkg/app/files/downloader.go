package files

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/sirupsen/logrus"
)

//go:generate mockery --name=Downloader --dir=. --output=./mocks --filename=file_downloader_mock.go --case=underscore --with-expecter
type Downloader interface {
	Download(ctx context.Context, conversationID, hash string) (*message.File, error)
}

type downloader struct {
	logger *logrus.Logger
	repo   file.Repository
}

func NewDownloader(logger *logrus.Logger, repo file.Repository) Downloader {
	return &downloader{logger: logger, repo: repo}
}

// Download returns the stored bytes as an inline base64 attachment.
func (d *downloader) Download(ctx context.Context, conversationID, hash string) (*message.File, error) {
	stored, err := d.repo.Get(ctx, conversationID, hash)
	if err != nil {
		if errors.Is(err, file.ErrFileNotFound) {
			return nil, err
		}
		d.logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"hash":            hash,
		}).WithError(err).Error("failed to read file")
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if stored == nil {
		return nil, file.ErrFileNotFound
	}
	return &message.File{
		Type:  message.FileTypeBase64,
		Name:  stored.Name,
		Value: base64.StdEncoding.EncodeToString(stored.Data),
		Mime:  stored.Mime,
	}, nil
}
