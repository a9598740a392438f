package security

import "github.com/NeuralTrust/SecurityProxy/pkg/domain/message"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type WireMessage struct {
	Role    string          `json:"role"`
	Content message.Content `json:"content"`
}

// Translate maps endpoint messages onto the wire format of the given provider.
// AIM only receives the text segments of structured content; APRISM receives
// the structured content unchanged.
func Translate(msgs []message.EndpointMessage, p Provider) []WireMessage {
	out := make([]WireMessage, len(msgs))
	for i, m := range msgs {
		out[i] = WireMessage{Role: wireRole(m.From), Content: translateContent(m.Content, p)}
	}
	return out
}

func translateContent(c message.Content, p Provider) message.Content {
	if !c.IsStructured() {
		return message.TextContent(c.Text())
	}
	if p == ProviderAIM {
		return message.TextContent(c.JoinedText())
	}
	return message.PartsContent(c.Parts()...)
}

func wireRole(from string) string {
	switch from {
	case message.FromUser:
		return RoleUser
	case message.FromAssistant:
		return RoleAssistant
	default:
		return RoleSystem
	}
}
