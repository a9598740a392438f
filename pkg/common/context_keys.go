package common

type contextKey string

const (
	TraceIdKey               contextKey = "trace_id"
	ConversationIDContextKey contextKey = "conversation_id"
	LatencyContextKey        contextKey = "__execution_time"
)
