package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const redacted = "[REDACTED]"

// RedactHook scrubs any field whose name contains "key", including keys of
// nested string maps such as header dumps.
type RedactHook struct{}

func NewRedactHook() *RedactHook {
	return &RedactHook{}
}

func (h *RedactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RedactHook) Fire(entry *logrus.Entry) error {
	for name, value := range entry.Data {
		if isSecretName(name) {
			entry.Data[name] = redacted
			continue
		}
		if m, ok := value.(map[string]string); ok {
			entry.Data[name] = redactMap(m)
		}
	}
	return nil
}

func redactMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if isSecretName(k) {
			v = redacted
		}
		out[k] = v
	}
	return out
}

func isSecretName(name string) bool {
	return strings.Contains(strings.ToLower(name), "key")
}
