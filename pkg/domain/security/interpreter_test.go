package security_test

import (
	"testing"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpret(t *testing.T) {
	t.Run("blocking refuses regardless of text", func(t *testing.T) {
		assert.Equal(t, security.Decision{ShouldBlock: true}, security.Interpret(strPtr("BLOCKING"), strPtr("anything")))
	})

	t.Run("masking with text replaces content", func(t *testing.T) {
		d := security.Interpret(strPtr("MASKING"), strPtr("X"))
		assert.False(t, d.ShouldBlock)
		require.NotNil(t, d.Content)
		assert.Equal(t, "X", *d.Content)
	})

	t.Run("masking without text keeps content", func(t *testing.T) {
		assert.Equal(t, security.Decision{}, security.Interpret(strPtr("MASKING"), nil))
		assert.Equal(t, security.Decision{}, security.Interpret(strPtr("MASKING"), strPtr("")))
	})

	t.Run("absent or NONE action keeps content", func(t *testing.T) {
		assert.Equal(t, security.Decision{}, security.Interpret(nil, nil))
		assert.Equal(t, security.Decision{}, security.Interpret(strPtr("NONE"), strPtr("X")))
		assert.Equal(t, security.Decision{}, security.Interpret(strPtr("blocking"), nil))
	})
}
