package preprocess

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/NeuralTrust/SecurityProxy/pkg/app/files"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 16
	clipboardSeparator = "\n\n"
)

//go:generate mockery --name=Preprocessor --dir=. --output=./mocks --filename=preprocessor_mock.go --case=underscore --with-expecter
type Preprocessor interface {
	Preprocess(ctx context.Context, conversationID string, msgs []message.Message) ([]message.EndpointMessage, error)
}

type Option func(*preprocessor)

// WithConcurrency bounds how many attachments are fetched at once.
func WithConcurrency(n int) Option {
	return func(p *preprocessor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

type preprocessor struct {
	logger      *logrus.Logger
	downloader  files.Downloader
	concurrency int
}

func NewPreprocessor(logger *logrus.Logger, downloader files.Downloader, opts ...Option) Preprocessor {
	p := &preprocessor{
		logger:      logger,
		downloader:  downloader,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *preprocessor) Preprocess(
	ctx context.Context,
	conversationID string,
	msgs []message.Message,
) ([]message.EndpointMessage, error) {
	p.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"message_count":   len(msgs),
	}).Debug("preprocessing messages")

	resolved, err := p.resolveFiles(ctx, conversationID, msgs)
	if err != nil {
		return nil, err
	}
	return message.ToEndpointMessages(SpliceClipboard(resolved)), nil
}

// resolveFiles returns a copy of msgs where every attachment is inline.
// Reference attachments are fetched concurrently; the first missing file
// fails the whole call.
func (p *preprocessor) resolveFiles(
	ctx context.Context,
	conversationID string,
	msgs []message.Message,
) ([]message.Message, error) {
	out := make([]message.Message, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, m := range msgs {
		out[i] = m
		if len(m.Files) == 0 {
			continue
		}
		resolved := make([]message.File, len(m.Files))
		out[i].Files = resolved
		for j, f := range m.Files {
			if f.IsInline() {
				resolved[j] = f
				continue
			}
			j, f := j, f
			g.Go(func() error {
				inline, err := p.downloader.Download(gctx, conversationID, f.Value)
				if err != nil {
					if errors.Is(err, file.ErrFileNotFound) {
						return fmt.Errorf("%w: %s", file.ErrFileNotFound, f.Value)
					}
					return fmt.Errorf("failed to resolve attachment %s: %w", f.Value, err)
				}
				if inline.Name == "" {
					inline.Name = f.Name
				}
				if inline.Mime == "" {
					inline.Mime = f.Mime
				}
				resolved[j] = *inline
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		p.logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
		}).WithError(err).Error("failed to resolve message attachments")
		return nil, err
	}
	return out, nil
}

// SpliceClipboard removes clipboard attachments and prepends their text to the
// message content, most recent paste first. Callers must append clipboard
// attachments to a message in the order they were pasted: the last attachment
// is taken as the most recent and the order is reversed on that assumption.
// Messages without clipboard attachments are returned unchanged.
func SpliceClipboard(msgs []message.Message) []message.Message {
	out := make([]message.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		var texts []string
		kept := make([]message.File, 0, len(m.Files))
		for _, f := range m.Files {
			if f.IsClipboard() {
				texts = append(texts, clipboardText(f.Value))
				continue
			}
			kept = append(kept, f)
		}
		if len(texts) == 0 {
			continue
		}
		for l, r := 0, len(texts)-1; l < r; l, r = l+1, r-1 {
			texts[l], texts[r] = texts[r], texts[l]
		}
		out[i].Content = strings.Join(texts, clipboardSeparator) + clipboardSeparator + m.Content
		out[i].Files = kept
	}
	return out
}

// clipboardText decodes a base64 clipboard payload. Values that are not valid
// base64 UTF-8 text are used as-is.
func clipboardText(value string) string {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil || !utf8.Valid(raw) {
		return value
	}
	return string(raw)
}
