package message

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
	PartTypeFile     = "file"
)

type ImageURL struct {
	URL string `json:"url"`
}

type FileData struct {
	Filename string `json:"filename,omitempty"`
	FileData string `json:"file_data"`
}

type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
	File     *FileData `json:"file,omitempty"`
}

func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// FilePartFrom turns an inline attachment into a data URL segment. Images use
// the image_url segment, everything else the generic file segment.
func FilePartFrom(f File) Part {
	if isImageMime(f.Mime) {
		return Part{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: f.DataURL()}}
	}
	return Part{Type: PartTypeFile, File: &FileData{Filename: f.Name, FileData: f.DataURL()}}
}

// Content is either a plain string or an ordered list of typed segments.
// Unknown JSON shapes decode to their textual form.
type Content struct {
	text       string
	parts      []Part
	structured bool
}

func TextContent(text string) Content {
	return Content{text: text}
}

func PartsContent(parts ...Part) Content {
	cp := make([]Part, len(parts))
	copy(cp, parts)
	return Content{parts: cp, structured: true}
}

func (c Content) IsStructured() bool {
	return c.structured
}

func (c Content) Text() string {
	return c.text
}

func (c Content) Parts() []Part {
	return c.parts
}

// JoinedText concatenates the text segments in order, separated by a space.
// Non-text segments are skipped.
func (c Content) JoinedText() string {
	if !c.structured {
		return c.text
	}
	texts := make([]string, 0, len(c.parts))
	for _, p := range c.parts {
		if p.Type == PartTypeText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " ")
}

func (c Content) String() string {
	if !c.structured {
		return c.text
	}
	return c.JoinedText()
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.structured {
		if c.parts == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.parts)
	}
	return json.Marshal(c.text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*c = Content{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			c.text = string(trimmed)
			return nil
		}
		c.text = s
		return nil
	case '[':
		var parts []Part
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			c.text = string(trimmed)
			return nil
		}
		c.parts = parts
		c.structured = true
		return nil
	default:
		c.text = string(trimmed)
		return nil
	}
}
