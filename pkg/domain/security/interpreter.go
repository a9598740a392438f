package security

type Decision struct {
	ShouldBlock bool    `json:"shouldBlock"`
	Content     *string `json:"content,omitempty"`
}

// Interpret turns a moderation action into what the caller should do with the
// content. Anything other than BLOCKING, or MASKING with text, keeps the
// original content.
func Interpret(action *string, maskedText *string) Decision {
	if action == nil {
		return Decision{}
	}
	switch Action(*action) {
	case ActionBlocking:
		return Decision{ShouldBlock: true}
	case ActionMasking:
		if maskedText != nil && *maskedText != "" {
			text := *maskedText
			return Decision{Content: &text}
		}
	}
	return Decision{}
}
