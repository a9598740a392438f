package security

const (
	DefaultAimGuardProjectID = "default"
	DefaultAimGuardType      = GuardBoth
	DefaultAprismAPIType     = AprismIdentifier
	DefaultAprismType        = GuardBoth
)

// Config is the single resolved configuration for one proxy invocation.
type Config struct {
	Enabled           bool          `json:"enabled"`
	URL               string        `json:"url"`
	Provider          Provider      `json:"external_api"`
	AimGuardType      GuardType     `json:"aim_guard_type,omitempty"`
	AimGuardProjectID string        `json:"aim_guard_project_id,omitempty"`
	AprismAPIType     AprismAPIType `json:"aprism_api_type,omitempty"`
	AprismType        GuardType     `json:"aprism_type,omitempty"`
	// nil when no layer set the field; empty when the field was set but held no labels.
	AprismExcludeLabels []string `json:"aprism_exclude_labels,omitempty"`
}

// LLMConfig is the direct model backend used when the proxy is disabled or
// unreachable.
type LLMConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"-"`
	Model   string `json:"model"`
}
