package server

import (
	"fmt"

	"github.com/NeuralTrust/SecurityProxy/pkg/config"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/prometheus"
	"github.com/NeuralTrust/SecurityProxy/pkg/server/router"
	"github.com/sirupsen/logrus"
)

type (
	APIServerDI struct {
		Config  *config.Config
		Logger  *logrus.Logger
		Routers []router.ServerRouter
	}
	APIServer struct {
		*BaseServer
	}
)

func NewAPIServer(di APIServerDI) *APIServer {
	if di.Config.Metrics.Enabled {
		prometheus.Initialize(prometheus.MetricsConfig{
			EnableLatency: di.Config.Metrics.EnableLatency,
			EnableProcess: di.Config.Metrics.EnableProcess,
		})
	}

	s := &APIServer{
		BaseServer: NewBaseServer(di.Config, di.Logger).WithRouters(di.Routers...),
	}
	s.BaseServer.setupMetricsEndpoint()
	return s
}

func (s *APIServer) Run() error {
	s.Logger.WithField("addr", s.Config.Server.Port).Info("Starting security proxy API server")
	return s.Router.Listen(fmt.Sprintf(":%d", s.Config.Server.Port))
}

func (s *APIServer) Shutdown() error {
	s.shutdownMetrics()
	return s.Router.Shutdown()
}
