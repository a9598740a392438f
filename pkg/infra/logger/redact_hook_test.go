package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/NeuralTrust/SecurityProxy/pkg/infra/logger"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactHook(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.AddHook(logger.NewRedactHook())

	log.WithFields(logrus.Fields{
		"api_key": "sk-secret",
		"headers": map[string]string{"x-aim-guard-key": "guard-secret", "x-external-api": "AIM"},
		"url":     "http://proxy",
	}).Info("security call")

	assert.NotContains(t, buf.String(), "secret")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "[REDACTED]", line["api_key"])
	headers, ok := line["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", headers["x-aim-guard-key"])
	assert.Equal(t, "AIM", headers["x-external-api"])
	assert.Equal(t, "http://proxy", line["url"])
}
