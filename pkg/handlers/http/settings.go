package http

import (
	"github.com/NeuralTrust/SecurityProxy/pkg/config"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/sirupsen/logrus"
)

// decodeSettings reads an option bag from a request body. A malformed bag is
// treated as absent so the other layer and the defaults still apply.
func decodeSettings(logger *logrus.Logger, name string, raw map[string]interface{}) *security.Settings {
	s, err := config.DecodeSettings(raw)
	if err != nil {
		logger.WithError(err).WithField("bag", name).Warn("ignoring malformed settings")
		return nil
	}
	return s
}
