package firewall

import (
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/infra/httpx"
)

type Option func(*SecurityProxyClient)

func WithHTTPClient(client httpx.Client) Option {
	return func(c *SecurityProxyClient) {
		if client != nil {
			c.client = client
		}
	}
}

// BreakerFactory builds the circuit breaker for one normalized endpoint.
type BreakerFactory func(endpoint string) httpx.CircuitBreaker

// WithBreakerFactory sets how per-endpoint breakers are built. Each distinct
// endpoint gets its own breaker on first use.
func WithBreakerFactory(factory BreakerFactory) Option {
	return func(c *SecurityProxyClient) {
		if factory != nil {
			c.newBreaker = factory
		}
	}
}

// WithDummyDelay overrides the simulated latency of the unconfigured endpoint
// response.
func WithDummyDelay(d time.Duration) Option {
	return func(c *SecurityProxyClient) {
		if d >= 0 {
			c.dummyDelay = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *SecurityProxyClient) {
		if now != nil {
			c.now = now
		}
	}
}
