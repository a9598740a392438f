package request

import (
	"fmt"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
)

type SecurityCheckRequest struct {
	ConversationID string                 `json:"conversationId,omitempty"`
	Messages       []message.Message      `json:"messages"`
	Settings       map[string]interface{} `json:"settings,omitempty"`
	GlobalSettings map[string]interface{} `json:"globalSettings,omitempty"`
}

func (r *SecurityCheckRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	if r.ConversationID == "" {
		for _, m := range r.Messages {
			for _, f := range m.Files {
				if !f.IsInline() {
					return fmt.Errorf("conversationId is required for stored file references")
				}
			}
		}
	}
	return validateMessages(r.Messages)
}
