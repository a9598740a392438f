package message

import (
	"fmt"
	"strings"
)

const (
	FromUser      = "user"
	FromAssistant = "assistant"
	FromSystem    = "system"

	ClipboardMime = "application/vnd.chatui.clipboard"
)

type FileType string

const (
	FileTypeBase64 FileType = "base64"
	FileTypeHash   FileType = "hash"
)

// File is a message attachment. For FileTypeHash the Value is the SHA-256 hex
// digest of the bytes held by the blob store; for FileTypeBase64 it is the
// base64 encoded payload itself.
type File struct {
	Type  FileType `json:"type"`
	Name  string   `json:"name"`
	Value string   `json:"value"`
	Mime  string   `json:"mime"`
}

func (f File) IsInline() bool {
	return f.Type == FileTypeBase64
}

func (f File) IsClipboard() bool {
	return f.Mime == ClipboardMime
}

func (f File) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", f.Mime, f.Value)
}

type Message struct {
	ID      string `json:"id,omitempty"`
	From    string `json:"from"`
	Content string `json:"content"`
	Files   []File `json:"files,omitempty"`
}

// EndpointMessage is a message ready to be handed to a model backend: every
// attachment already inline and folded into the content parts.
type EndpointMessage struct {
	From    string  `json:"from"`
	Content Content `json:"content"`
}

// ToEndpointMessages folds inline attachments into structured content. Messages
// without attachments keep plain string content.
func ToEndpointMessages(msgs []Message) []EndpointMessage {
	out := make([]EndpointMessage, len(msgs))
	for i, m := range msgs {
		if len(m.Files) == 0 {
			out[i] = EndpointMessage{From: m.From, Content: TextContent(m.Content)}
			continue
		}
		parts := make([]Part, 0, len(m.Files)+1)
		parts = append(parts, TextPart(m.Content))
		for _, f := range m.Files {
			parts = append(parts, FilePartFrom(f))
		}
		out[i] = EndpointMessage{From: m.From, Content: PartsContent(parts...)}
	}
	return out
}

// LastUserText returns the string content of the final message when it was sent
// by the user, or an empty string.
func LastUserText(msgs []EndpointMessage) string {
	if len(msgs) == 0 {
		return ""
	}
	last := msgs[len(msgs)-1]
	if last.From != FromUser || last.Content.IsStructured() {
		return ""
	}
	return last.Content.Text()
}

func isImageMime(mime string) bool {
	return strings.HasPrefix(strings.ToLower(mime), "image/")
}
