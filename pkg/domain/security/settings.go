package security

// Settings is the option bag shared by the conversation override and the global
// settings. Every field is optional; nil means "not set at this layer".
// Enabled is reported but never gates the proxy; see RequestedEnabled.
type Settings struct {
	Enabled             *bool   `mapstructure:"securityApiEnabled" json:"securityApiEnabled,omitempty"`
	URL                 *string `mapstructure:"securityApiUrl" json:"securityApiUrl,omitempty"`
	ExternalAPI         *string `mapstructure:"securityExternalApi" json:"securityExternalApi,omitempty"`
	AimGuardType        *string `mapstructure:"securityAimGuardType" json:"securityAimGuardType,omitempty"`
	AimGuardProjectID   *string `mapstructure:"securityAimGuardProjectId" json:"securityAimGuardProjectId,omitempty"`
	AprismAPIType       *string `mapstructure:"securityAprismApiType" json:"securityAprismApiType,omitempty"`
	AprismType          *string `mapstructure:"securityAprismType" json:"securityAprismType,omitempty"`
	AprismExcludeLabels *string `mapstructure:"securityAprismExcludeLabels" json:"securityAprismExcludeLabels,omitempty"`
	LLMAPIURL           *string `mapstructure:"llmApiUrl" json:"llmApiUrl,omitempty"`
	LLMAPIKey           *string `mapstructure:"llmApiKey" json:"-"`
}

// Credentials are the process-wide moderation API keys. They are injected at
// construction and never mutated afterwards.
type Credentials struct {
	AimGuardKey        string
	AprismInferenceKey string
}

func (c Credentials) HasGuardKey() bool {
	return c.AimGuardKey != ""
}

func (c Credentials) HasDetectorKey() bool {
	return c.AprismInferenceKey != ""
}
