package security

import (
	"encoding/json"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
)

type CallTiming struct {
	CallStart int64 `json:"call_start,omitempty"`
	CallEnd   int64 `json:"call_end,omitempty"`
	Duration  int64 `json:"duration,omitempty"`
}

// CallResult is the outcome of one ProxyClient round-trip. A success always
// carries Data; an error or timeout always carries Error and never Data.
type CallResult struct {
	Status         CallStatus              `json:"status"`
	StatusCode     int                     `json:"status_code,omitempty"`
	Data           *ProxiedData            `json:"data,omitempty"`
	Completion     *message.ChatCompletion `json:"response,omitempty"`
	Error          string                  `json:"error,omitempty"`
	Timing         *CallTiming             `json:"timing,omitempty"`
	ResponseTimeMs int64                   `json:"securityResponseTime"`
	IsDummy        bool                    `json:"isDummy,omitempty"`
}

func (r CallResult) Failed() bool {
	return r.Status == StatusError || r.Status == StatusTimeout
}

// LegError converts a failed result into the error object stored in the debug
// record. It returns nil for results that did not fail.
func (r CallResult) LegError(timestamp string) *LegError {
	if !r.Failed() {
		return nil
	}
	le := &LegError{Error: r.Error, Status: r.Status, Timestamp: timestamp}
	if r.StatusCode != 0 {
		code := r.StatusCode
		le.StatusCode = &code
	}
	return le
}

type LegError struct {
	Error      string     `json:"error"`
	Status     CallStatus `json:"status,omitempty"`
	StatusCode *int       `json:"status_code,omitempty"`
	Timestamp  string     `json:"timestamp,omitempty"`
	Traceback  string     `json:"traceback,omitempty"`
}

type HandlerError struct {
	Error     string `json:"error"`
	Traceback string `json:"traceback,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Stage     string `json:"stage,omitempty"`
}

// LegResponse is one moderation check (input or output) as reported by the
// proxy.
type LegResponse struct {
	Status     CallStatus  `json:"status"`
	StatusCode *int        `json:"status_code,omitempty"`
	Data       *LegData    `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Timestamp  string      `json:"timestamp,omitempty"`
	Traceback  string      `json:"traceback,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Timing     *CallTiming `json:"timing,omitempty"`
}

func (l *LegResponse) Action() *string {
	if l == nil || l.Data == nil {
		return nil
	}
	return l.Data.Action
}

func (l *LegResponse) MaskedText() *string {
	if l == nil || l.Data == nil {
		return nil
	}
	if l.Data.MaskedText != nil {
		return l.Data.MaskedText
	}
	if l.Data.IdentifierDetection != nil {
		return l.Data.Abstracted
	}
	return nil
}

// LegData holds the action and whichever detection variant the provider sent.
// The embedded variants are allocated only when one of their fields is
// present in the payload.
type LegData struct {
	Action     *string `json:"action,omitempty"`
	MaskedText *string `json:"masked_text,omitempty"`
	Type       *string `json:"type,omitempty"`

	*AimDetection
	*IdentifierDetection
	*RiskDetection
}

type DetectionKind string

const (
	DetectionNone       DetectionKind = ""
	DetectionAim        DetectionKind = "aim"
	DetectionIdentifier DetectionKind = "identifier"
	DetectionRisk       DetectionKind = "risk-detector"
)

func (d *LegData) Kind() DetectionKind {
	switch {
	case d == nil:
		return DetectionNone
	case d.AimDetection != nil:
		return DetectionAim
	case d.IdentifierDetection != nil:
		return DetectionIdentifier
	case d.RiskDetection != nil:
		return DetectionRisk
	}
	return DetectionNone
}

type AimDetection struct {
	DetectedItemsCount    *int              `json:"detected_items_count,omitempty"`
	PolicyViolationsCount *int              `json:"policy_violations_count,omitempty"`
	ProcessingTime        *float64          `json:"processing_time,omitempty"`
	PolicyEnabled         []string          `json:"policy_enabled,omitempty"`
	InputSources          []string          `json:"input_sources,omitempty"`
	PolicyViolations      []json.RawMessage `json:"policy_violations,omitempty"`
	PIIDetection          json.RawMessage   `json:"pii_detection,omitempty"`
	DetectedItems         json.RawMessage   `json:"detected_items,omitempty"`
}

type Entity struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

type IdentifierDetection struct {
	Entities   []Entity `json:"entities,omitempty"`
	Abstracted *string  `json:"abstracted,omitempty"`
	Original   *string  `json:"original,omitempty"`
}

type RiskDetection struct {
	Label *string  `json:"label,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

type TimingInfo struct {
	PreCallStart               *int64 `json:"pre_call_start,omitempty"`
	InputSecurityAPICallStart  *int64 `json:"input_security_api_call_start,omitempty"`
	InputSecurityAPICallEnd    *int64 `json:"input_security_api_call_end,omitempty"`
	InputSecurityAPIDuration   *int64 `json:"input_security_api_duration,omitempty"`
	LLMCallStart               *int64 `json:"llm_call_start,omitempty"`
	LLMCallEnd                 *int64 `json:"llm_call_end,omitempty"`
	LLMCallDuration            *int64 `json:"llm_call_duration,omitempty"`
	OutputSecurityAPICallStart *int64 `json:"output_security_api_call_start,omitempty"`
	OutputSecurityAPICallEnd   *int64 `json:"output_security_api_call_end,omitempty"`
	OutputSecurityAPIDuration  *int64 `json:"output_security_api_duration,omitempty"`
	TotalDuration              *int64 `json:"total_duration,omitempty"`
}
