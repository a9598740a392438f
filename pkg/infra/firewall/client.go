package firewall

import (
	"context"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
)

// ProxyClient performs one round-trip against the security proxy. It never
// returns an error: every failure is reported through the result status.
//
//go:generate mockery --name=ProxyClient --dir=. --output=./mocks --filename=proxy_client_mock.go --case=underscore --with-expecter
type ProxyClient interface {
	Call(ctx context.Context, msgs []message.EndpointMessage, cfg *security.Config) security.CallResult
}
