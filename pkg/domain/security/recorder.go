package security

import (
	"encoding/json"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
)

type Leg string

const (
	LegInput  Leg = "input"
	LegOutput Leg = "output"
)

// DebugRecord is the audit trail of one chat round. It is attached to the
// resulting message and never drives control flow.
type DebugRecord struct {
	OriginalRequest           json.RawMessage         `json:"originalRequest,omitempty"`
	SecurityResponseTime      *int64                  `json:"securityResponseTime,omitempty"`
	InputSecurityAPIResponse  *LegResponse            `json:"inputSecurityApiResponse,omitempty"`
	InputSecurityAPIError     *LegError               `json:"inputSecurityApiError,omitempty"`
	OutputSecurityAPIResponse *LegResponse            `json:"outputSecurityApiResponse,omitempty"`
	OutputSecurityAPIError    *LegError               `json:"outputSecurityApiError,omitempty"`
	InputSecurityAPIDuration  *int64                  `json:"inputSecurityApiDuration,omitempty"`
	OutputSecurityAPIDuration *int64                  `json:"outputSecurityApiDuration,omitempty"`
	SecurityProxiedLLMRequest json.RawMessage         `json:"securityProxiedLlmRequest,omitempty"`
	LLMResponse               json.RawMessage         `json:"llmResponse,omitempty"`
	HandlerError              *HandlerError           `json:"handlerError,omitempty"`
	FinalLLMResponse          *message.ChatCompletion `json:"finalLlmResponse,omitempty"`
	FinalResponse             string                  `json:"finalResponse,omitempty"`
	LLMResponseTime           *int64                  `json:"llmResponseTime,omitempty"`
	TotalTime                 *int64                  `json:"totalTime,omitempty"`
	Error                     string                  `json:"error,omitempty"`
	IsDummyResponse           bool                    `json:"isDummyResponse,omitempty"`
	Timing                    TimingInfo              `json:"timing"`
	SecurityProxiedData       *ProxiedData            `json:"securityProxiedData,omitempty"`
}

// Recorder accumulates a DebugRecord for one round. It is not safe for
// concurrent use; each round owns its own Recorder.
type Recorder struct {
	now    func() time.Time
	start  time.Time
	record DebugRecord
}

func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	r := &Recorder{now: now}
	r.start = now()
	r.record.Timing.PreCallStart = ms(r.start)
	return r
}

func (r *Recorder) Now() time.Time {
	return r.now()
}

func (r *Recorder) SetOriginalRequest(v any) {
	if raw, err := json.Marshal(v); err == nil {
		r.record.OriginalRequest = raw
	}
}

// RecordLeg stores one moderation check and its wall-clock window. A zero start
// leaves the timing fields absent.
func (r *Recorder) RecordLeg(leg Leg, start, end time.Time, resp *LegResponse, legErr *LegError) {
	t := &r.record.Timing
	var startField, endField, durField **int64
	switch leg {
	case LegInput:
		if resp != nil {
			r.record.InputSecurityAPIResponse = resp
		}
		if legErr != nil {
			r.record.InputSecurityAPIError = legErr
		}
		startField, endField, durField = &t.InputSecurityAPICallStart, &t.InputSecurityAPICallEnd, &t.InputSecurityAPIDuration
	case LegOutput:
		if resp != nil {
			r.record.OutputSecurityAPIResponse = resp
		}
		if legErr != nil {
			r.record.OutputSecurityAPIError = legErr
		}
		startField, endField, durField = &t.OutputSecurityAPICallStart, &t.OutputSecurityAPICallEnd, &t.OutputSecurityAPIDuration
	default:
		return
	}
	if start.IsZero() {
		return
	}
	if end.Before(start) {
		end = start
	}
	*startField, *endField = ms(start), ms(end)
	*durField = duration(start, end)
	if leg == LegInput {
		r.record.InputSecurityAPIDuration = *durField
	} else {
		r.record.OutputSecurityAPIDuration = *durField
	}
}

// RecordSecurityCall stores the outcome of the proxy round-trip and merges
// whatever the proxy reported about its own legs.
func (r *Recorder) RecordSecurityCall(res CallResult) {
	rt := res.ResponseTimeMs
	r.record.SecurityResponseTime = &rt
	r.record.IsDummyResponse = res.IsDummy
	if res.Failed() {
		r.record.Error = res.Error
		r.RecordLeg(LegInput, time.Time{}, time.Time{}, nil, res.LegError(r.now().UTC().Format(time.RFC3339)))
		return
	}
	if res.Data != nil {
		r.MergeRemote(res.Data)
	}
}

// MergeRemote copies the proxy's own account of the round into the record.
func (r *Recorder) MergeRemote(pd *ProxiedData) {
	if pd == nil {
		return
	}
	r.record.SecurityProxiedData = pd
	if len(pd.LLMRequest) > 0 {
		r.record.SecurityProxiedLLMRequest = pd.LLMRequest
	}
	if len(pd.LLMResponse) > 0 {
		r.record.LLMResponse = pd.LLMResponse
	}
	if pd.HandlerError != nil {
		r.record.HandlerError = pd.HandlerError
	}
	rt := pd.Timing
	if rt == nil {
		rt = &TimingInfo{}
	}
	r.RecordLeg(LegInput, fromMs(rt.InputSecurityAPICallStart), fromMs(rt.InputSecurityAPICallEnd), pd.InputLeg(), pd.InputSecurityAPIError)
	r.RecordLeg(LegOutput, fromMs(rt.OutputSecurityAPICallStart), fromMs(rt.OutputSecurityAPICallEnd), pd.OutputLeg(), pd.OutputSecurityAPIError)
	if rt.LLMCallStart != nil && rt.LLMCallEnd != nil {
		t := &r.record.Timing
		t.LLMCallStart, t.LLMCallEnd = rt.LLMCallStart, rt.LLMCallEnd
		t.LLMCallDuration = duration(time.UnixMilli(*rt.LLMCallStart), time.UnixMilli(*rt.LLMCallEnd))
	}
}

func (r *Recorder) RecordModelCall(start, end time.Time, completion *message.ChatCompletion) {
	if end.Before(start) {
		end = start
	}
	t := &r.record.Timing
	if t.LLMCallStart == nil {
		t.LLMCallStart, t.LLMCallEnd = ms(start), ms(end)
		t.LLMCallDuration = duration(start, end)
	}
	r.record.LLMResponseTime = duration(start, end)
	r.record.FinalLLMResponse = completion
}

func (r *Recorder) RecordHandlerError(stage string, err error) {
	if err == nil {
		return
	}
	r.record.HandlerError = &HandlerError{
		Error:     err.Error(),
		Timestamp: r.now().UTC().Format(time.RFC3339),
		Stage:     stage,
	}
	r.record.Error = err.Error()
}

// Finish stamps the total duration and returns the record. The recorder must
// not be used afterwards.
func (r *Recorder) Finish(finalResponse string) *DebugRecord {
	end := r.now()
	if end.Before(r.start) {
		end = r.start
	}
	r.record.Timing.TotalDuration = duration(r.start, end)
	r.record.TotalTime = r.record.Timing.TotalDuration
	r.record.FinalResponse = finalResponse
	rec := r.record
	return &rec
}

func ms(t time.Time) *int64 {
	v := t.UnixMilli()
	return &v
}

func fromMs(v *int64) time.Time {
	if v == nil {
		return time.Time{}
	}
	return time.UnixMilli(*v)
}

func duration(start, end time.Time) *int64 {
	v := end.Sub(start).Milliseconds()
	return &v
}
