package response

import "github.com/NeuralTrust/SecurityProxy/pkg/domain/security"

type SecurityCheckResponse struct {
	Provider security.Provider   `json:"provider"`
	Result   security.CallResult `json:"result"`
	Input    *security.Decision  `json:"input,omitempty"`
	Output   *security.Decision  `json:"output,omitempty"`
}
