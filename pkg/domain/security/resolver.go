package security

import "strings"

// Resolve merges the conversation override and the global settings into one
// Config. Each field is decided on its own as override, then global, then the
// default. It returns nil when the winning provider selector is NONE.
func Resolve(override, global *Settings) *Config {
	return resolve(override, global, ProviderNone)
}

// Resolver resolves settings with a default provider supplied by a
// ProviderSelector. An explicit NONE in either bag still wins over the default.
type Resolver struct {
	fallback Provider
}

func NewResolver(selector *ProviderSelector) *Resolver {
	fallback := ProviderNone
	if selector != nil {
		fallback = selector.Fallback()
	}
	return &Resolver{fallback: fallback}
}

func (r *Resolver) Resolve(override, global *Settings) *Config {
	return resolve(override, global, r.fallback)
}

func resolve(override, global *Settings, defaultProvider Provider) *Config {
	provider := defaultProvider
	if p, ok := pickEnum(override, global, func(s *Settings) *string { return s.ExternalAPI }, ParseProvider); ok {
		provider = p
	}
	if provider == ProviderNone || provider == "" {
		return nil
	}

	cfg := &Config{
		Enabled:           true,
		URL:               pickString(override, global, func(s *Settings) *string { return s.URL }, ""),
		Provider:          provider,
		AimGuardType:      DefaultAimGuardType,
		AimGuardProjectID: pickString(override, global, func(s *Settings) *string { return s.AimGuardProjectID }, DefaultAimGuardProjectID),
		AprismAPIType:     DefaultAprismAPIType,
		AprismType:        DefaultAprismType,
	}
	if v, ok := pickEnum(override, global, func(s *Settings) *string { return s.AimGuardType }, ParseGuardType); ok {
		cfg.AimGuardType = v
	}
	if v, ok := pickEnum(override, global, func(s *Settings) *string { return s.AprismAPIType }, ParseAprismAPIType); ok {
		cfg.AprismAPIType = v
	}
	if v, ok := pickEnum(override, global, func(s *Settings) *string { return s.AprismType }, ParseGuardType); ok {
		cfg.AprismType = v
	}
	if raw := pick(override, global, func(s *Settings) *string { return s.AprismExcludeLabels }); raw != nil {
		cfg.AprismExcludeLabels = ParseLabels(*raw)
	}
	return cfg
}

// ResolveLLM applies the same precedence to the direct model backend settings.
func ResolveLLM(override, global *Settings, defaults LLMConfig) LLMConfig {
	cfg := defaults
	cfg.BaseURL = pickString(override, global, func(s *Settings) *string { return s.LLMAPIURL }, defaults.BaseURL)
	cfg.APIKey = pickString(override, global, func(s *Settings) *string { return s.LLMAPIKey }, defaults.APIKey)
	return cfg
}

// RequestedEnabled returns the securityApiEnabled flag that wins the usual
// precedence, or nil when neither bag sets it. The flag is informational: only
// the provider decides whether the proxy is called.
func RequestedEnabled(override, global *Settings) *bool {
	for _, s := range []*Settings{override, global} {
		if s != nil && s.Enabled != nil {
			return s.Enabled
		}
	}
	return nil
}

// ParseLabels splits a comma separated list, trimming entries and dropping
// empty ones. The result is never nil.
func ParseLabels(raw string) []string {
	labels := make([]string, 0)
	for _, l := range strings.Split(raw, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

func pick(override, global *Settings, field func(*Settings) *string) *string {
	for _, s := range []*Settings{override, global} {
		if s == nil {
			continue
		}
		if v := field(s); v != nil {
			return v
		}
	}
	return nil
}

func pickString(override, global *Settings, field func(*Settings) *string, def string) string {
	if v := pick(override, global, field); v != nil {
		return *v
	}
	return def
}

// pickEnum skips values that do not parse, so a malformed layer falls through
// to the next one instead of failing the whole resolution.
func pickEnum[T any](override, global *Settings, field func(*Settings) *string, parse func(string) (T, bool)) (T, bool) {
	for _, s := range []*Settings{override, global} {
		if s == nil {
			continue
		}
		v := field(s)
		if v == nil {
			continue
		}
		if parsed, ok := parse(*v); ok {
			return parsed, true
		}
	}
	var zero T
	return zero, false
}
