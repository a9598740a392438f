package security

import (
	"fmt"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
)

const (
	// PlaceholderModel is sent as the model name; the proxy picks the real one.
	PlaceholderModel = "gpt-3.5-turbo"
	DummyResponseID  = "dummy-security-response"
	DummyDelay       = 100 * time.Millisecond

	dummyNotice = "[Security API dummy response] Security API URL is not configured."
)

// NewDummyResult builds the stand-in result returned when no endpoint is
// configured. The completion echoes the last user message and both legs report
// action NONE, so downstream consumers see the shape of a live call.
func NewDummyResult(msgs []message.EndpointMessage, started time.Time, elapsed time.Duration) CallResult {
	content := dummyNotice
	if last := message.LastUserText(msgs); last != "" {
		content = fmt.Sprintf("%s Original message: %q", dummyNotice, last)
	}
	end := started.Add(elapsed)
	none := string(ActionNone)
	leg := func() *LegResponse {
		return &LegResponse{Status: StatusSuccess, Data: &LegData{Action: &none}}
	}
	return CallResult{
		Status: StatusSuccess,
		Data: &ProxiedData{
			InputSecurityAPIResponse:  leg(),
			OutputSecurityAPIResponse: leg(),
		},
		Completion: &message.ChatCompletion{
			ID:      DummyResponseID,
			Object:  "chat.completion",
			Created: end.Unix(),
			Model:   PlaceholderModel,
			Choices: []message.Choice{{
				Index:        0,
				Message:      message.ChoiceMessage{Role: RoleAssistant, Content: content},
				FinishReason: "stop",
			}},
			Usage: &message.Usage{},
		},
		Timing: &CallTiming{
			CallStart: started.UnixMilli(),
			CallEnd:   end.UnixMilli(),
			Duration:  elapsed.Milliseconds(),
		},
		ResponseTimeMs: elapsed.Milliseconds(),
		IsDummy:        true,
	}
}
