package security

import (
	"net/http"
	"strings"
)

const (
	HeaderContentType         = "content-type"
	HeaderExternalAPI         = "x-external-api"
	HeaderAimGuardKey         = "x-aim-guard-key"
	HeaderAimGuardType        = "x-aim-guard-type"
	HeaderAimGuardProjectID   = "x-aim-guard-project-id"
	HeaderAprismInferenceKey  = "x-aprism-inference-key"
	HeaderAprismAPIType       = "x-aprism-api-type"
	HeaderAprismType          = "x-aprism-type"
	HeaderAprismExcludeLabels = "x-aprism-exclude-labels"

	Redacted = "[REDACTED]"
)

// BuildHeaders returns the outbound headers for one proxy call. Provider
// specific headers are only attached for the provider actually selected.
func BuildHeaders(cfg *Config, provider Provider, creds Credentials) http.Header {
	h := http.Header{}
	h.Set(HeaderContentType, "application/json")
	if cfg == nil {
		return h
	}
	if cfg.Provider != "" && cfg.Provider != ProviderNone {
		h.Set(HeaderExternalAPI, string(cfg.Provider))
	}

	switch provider {
	case ProviderAIM:
		if creds.AimGuardKey != "" {
			h.Set(HeaderAimGuardKey, creds.AimGuardKey)
		}
		if cfg.AimGuardType != "" {
			h.Set(HeaderAimGuardType, string(cfg.AimGuardType))
		}
		if cfg.AimGuardProjectID != "" {
			h.Set(HeaderAimGuardProjectID, cfg.AimGuardProjectID)
		}
	case ProviderAprism:
		if creds.AprismInferenceKey != "" {
			h.Set(HeaderAprismInferenceKey, creds.AprismInferenceKey)
		}
		if cfg.AprismAPIType != "" {
			h.Set(HeaderAprismAPIType, string(cfg.AprismAPIType))
		}
		if cfg.AprismType != "" {
			h.Set(HeaderAprismType, string(cfg.AprismType))
		}
		if len(cfg.AprismExcludeLabels) > 0 {
			h.Set(HeaderAprismExcludeLabels, strings.Join(cfg.AprismExcludeLabels, ","))
		}
	}
	return h
}

// RedactHeaders flattens headers for logging. Any header whose name contains
// "key" is replaced by the redaction marker.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "key") {
			out[lower] = Redacted
			continue
		}
		out[lower] = strings.Join(values, ",")
	}
	return out
}
