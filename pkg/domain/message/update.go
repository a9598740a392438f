package message

type UpdateStatus string

const (
	StatusStarted               UpdateStatus = "started"
	StatusError                 UpdateStatus = "error"
	StatusFinished              UpdateStatus = "finished"
	StatusSecurityApiRequesting UpdateStatus = "securityApiRequesting"
	StatusSecurityApiResponded  UpdateStatus = "securityApiResponded"
	StatusLlmRequesting         UpdateStatus = "llmRequesting"
	StatusLlmResponded          UpdateStatus = "llmResponded"
)

type StatusUpdate struct {
	Status     UpdateStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	StatusCode int          `json:"statusCode,omitempty"`
}
