package security

import "encoding/json"

// ProxiedDataField is the top-level key under which the proxy reports its
// moderation payload.
const ProxiedDataField = "security_proxied_data"

type ProxiedData struct {
	OriginalRequest           json.RawMessage  `json:"original_request,omitempty"`
	InputSecurityAPIResponse  *LegResponse     `json:"input_security_api_response,omitempty"`
	InputSecurityAPIError     *LegError        `json:"input_security_api_error,omitempty"`
	LLMRequest                json.RawMessage  `json:"llm_request,omitempty"`
	LLMResponse               json.RawMessage  `json:"llm_response,omitempty"`
	OutputSecurityAPIResponse *LegResponse     `json:"output_security_api_response,omitempty"`
	OutputSecurityAPIError    *LegError        `json:"output_security_api_error,omitempty"`
	Timing                    *TimingInfo      `json:"timing,omitempty"`
	Metadata                  json.RawMessage  `json:"metadata,omitempty"`
	HandlerError              *HandlerError    `json:"handler_error,omitempty"`
	AimGuardDetails           *ProviderDetails `json:"aim_guard_details,omitempty"`
	AprismDetails             *ProviderDetails `json:"aprism_details,omitempty"`
	ExternalAPIResponse       *LegResponse     `json:"external_api_response,omitempty"`
}

type ProviderDetails struct {
	Input  *AimDetection `json:"input,omitempty"`
	Output *AimDetection `json:"output,omitempty"`
}

// InputLeg returns the input check, falling back to the legacy single
// response field.
func (p *ProxiedData) InputLeg() *LegResponse {
	if p == nil {
		return nil
	}
	if p.InputSecurityAPIResponse != nil {
		return p.InputSecurityAPIResponse
	}
	return p.ExternalAPIResponse
}

func (p *ProxiedData) OutputLeg() *LegResponse {
	if p == nil {
		return nil
	}
	return p.OutputSecurityAPIResponse
}

func (p *ProxiedData) Empty() bool {
	return p == nil || (p.InputSecurityAPIResponse == nil && p.OutputSecurityAPIResponse == nil &&
		p.ExternalAPIResponse == nil && p.InputSecurityAPIError == nil && p.OutputSecurityAPIError == nil &&
		p.Timing == nil && p.HandlerError == nil && len(p.LLMResponse) == 0)
}

// Normalize fills the per-provider detail blocks from the leg payloads when the
// proxy left them out, so consumers read AIM counts from one place.
func (p *ProxiedData) Normalize(provider Provider) {
	if p == nil {
		return
	}
	in, out := aimOf(p.InputLeg()), aimOf(p.OutputLeg())
	if in == nil && out == nil {
		return
	}
	switch provider {
	case ProviderAIM:
		if p.AimGuardDetails == nil {
			p.AimGuardDetails = &ProviderDetails{Input: in, Output: out}
		}
	case ProviderAprism:
		if p.AprismDetails == nil {
			p.AprismDetails = &ProviderDetails{Input: in, Output: out}
		}
	}
}

func aimOf(leg *LegResponse) *AimDetection {
	if leg == nil || leg.Data == nil {
		return nil
	}
	return leg.Data.AimDetection
}

// DecodeProxiedData interprets a successful proxy body. The payload is read
// from the security_proxied_data field when present, otherwise the whole body
// is taken as the payload. A body that is itself a single leg response is kept
// as the legacy external_api_response.
func DecodeProxiedData(raw []byte, nested bool) (*ProxiedData, error) {
	pd := &ProxiedData{}
	if err := json.Unmarshal(raw, pd); err != nil {
		return nil, err
	}
	if nested || !pd.Empty() {
		return pd, nil
	}
	var leg LegResponse
	if err := json.Unmarshal(raw, &leg); err == nil && leg.Data != nil {
		if leg.Status == "" {
			leg.Status = StatusSuccess
		}
		pd.ExternalAPIResponse = &leg
		return pd, nil
	}
	var data LegData
	if err := json.Unmarshal(raw, &data); err == nil && data.Action != nil {
		pd.ExternalAPIResponse = &LegResponse{Status: StatusSuccess, Data: &data}
	}
	return pd, nil
}
