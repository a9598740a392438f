package common

import "time"

const (
	DefaultFileTTL = 24 * time.Hour

	ConversationIDHeader = "X-Conversation-Id"
	RequestIDHeader      = "X-Request-Id"

	APIPrefix = "/api/v1"
)
