package security

import "strings"

type Provider string

const (
	ProviderAIM    Provider = "AIM"
	ProviderAprism Provider = "APRISM"
	ProviderNone   Provider = "NONE"
)

// ParseProvider accepts the provider selector case-insensitively.
func ParseProvider(v string) (Provider, bool) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case string(ProviderAIM):
		return ProviderAIM, true
	case string(ProviderAprism):
		return ProviderAprism, true
	case string(ProviderNone):
		return ProviderNone, true
	}
	return "", false
}

type GuardType string

const (
	GuardBoth   GuardType = "both"
	GuardInput  GuardType = "input"
	GuardOutput GuardType = "output"
)

func ParseGuardType(v string) (GuardType, bool) {
	switch GuardType(strings.ToLower(strings.TrimSpace(v))) {
	case GuardBoth:
		return GuardBoth, true
	case GuardInput:
		return GuardInput, true
	case GuardOutput:
		return GuardOutput, true
	}
	return "", false
}

type AprismAPIType string

const (
	AprismIdentifier   AprismAPIType = "identifier"
	AprismRiskDetector AprismAPIType = "risk-detector"
)

func ParseAprismAPIType(v string) (AprismAPIType, bool) {
	switch AprismAPIType(strings.ToLower(strings.TrimSpace(v))) {
	case AprismIdentifier:
		return AprismIdentifier, true
	case AprismRiskDetector:
		return AprismRiskDetector, true
	}
	return "", false
}

type Action string

const (
	ActionNone     Action = "NONE"
	ActionMasking  Action = "MASKING"
	ActionBlocking Action = "BLOCKING"
)

type CallStatus string

const (
	StatusSuccess CallStatus = "success"
	StatusError   CallStatus = "error"
	StatusTimeout CallStatus = "timeout"
	StatusSkipped CallStatus = "skipped"
)
