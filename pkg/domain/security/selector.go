package security

// ProviderSelector decides which moderation protocol a Config speaks. Explicit
// selection always wins; the optional fallback only looks at which credentials
// the process was started with.
type ProviderSelector struct {
	creds    Credentials
	fallback bool
}

func NewProviderSelector(creds Credentials, fallback bool) *ProviderSelector {
	return &ProviderSelector{creds: creds, fallback: fallback}
}

func (s *ProviderSelector) Select(cfg *Config) Provider {
	if cfg == nil {
		return ProviderNone
	}
	if cfg.Provider != "" && cfg.Provider != ProviderNone {
		return cfg.Provider
	}
	return s.Fallback()
}

func (s *ProviderSelector) Fallback() Provider {
	if s == nil || !s.fallback {
		return ProviderNone
	}
	switch {
	case s.creds.HasGuardKey():
		return ProviderAIM
	case s.creds.HasDetectorKey():
		return ProviderAprism
	default:
		return ProviderNone
	}
}
