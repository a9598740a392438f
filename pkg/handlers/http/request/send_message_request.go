package request

import (
	"fmt"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
)

type SendMessageRequest struct {
	Messages       []message.Message      `json:"messages"`
	Settings       map[string]interface{} `json:"settings,omitempty"`
	GlobalSettings map[string]interface{} `json:"globalSettings,omitempty"`
}

func (r *SendMessageRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	return validateMessages(r.Messages)
}

func validateMessages(msgs []message.Message) error {
	for i, m := range msgs {
		switch m.From {
		case message.FromUser, message.FromAssistant, message.FromSystem:
		default:
			return fmt.Errorf("messages[%d]: invalid sender %q", i, m.From)
		}
		for j, f := range m.Files {
			switch f.Type {
			case message.FileTypeBase64, message.FileTypeHash:
			default:
				return fmt.Errorf("messages[%d].files[%d]: invalid type %q", i, j, f.Type)
			}
			if f.Value == "" {
				return fmt.Errorf("messages[%d].files[%d]: value is required", i, j)
			}
		}
	}
	return nil
}
