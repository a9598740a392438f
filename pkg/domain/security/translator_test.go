package security_test

import (
	"encoding/json"
	"testing"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/message"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	structured := message.PartsContent(
		message.TextPart("hello"),
		message.FilePartFrom(message.File{Type: message.FileTypeBase64, Name: "a.png", Mime: "image/png", Value: "AAAA"}),
	)
	msgs := []message.EndpointMessage{
		{From: message.FromSystem, Content: message.TextContent("be nice")},
		{From: message.FromUser, Content: structured},
	}

	t.Run("AIM keeps only text segments", func(t *testing.T) {
		out := security.Translate(msgs, security.ProviderAIM)
		require.Len(t, out, 2)
		assert.Equal(t, "system", out[0].Role)
		assert.Equal(t, "be nice", out[0].Content.Text())
		assert.False(t, out[1].Content.IsStructured())
		assert.Equal(t, "hello", out[1].Content.Text())
	})

	t.Run("APRISM keeps every segment", func(t *testing.T) {
		out := security.Translate(msgs, security.ProviderAprism)
		require.Len(t, out, 2)
		require.True(t, out[1].Content.IsStructured())
		parts := out[1].Content.Parts()
		require.Len(t, parts, 2)
		assert.Equal(t, message.PartTypeText, parts[0].Type)
		assert.Equal(t, message.PartTypeImageURL, parts[1].Type)
		assert.Equal(t, "data:image/png;base64,AAAA", parts[1].ImageURL.URL)
	})

	t.Run("text segments are space joined in order", func(t *testing.T) {
		in := []message.EndpointMessage{{
			From:    message.FromUser,
			Content: message.PartsContent(message.TextPart("a"), message.TextPart("b")),
		}}
		assert.Equal(t, "a b", security.Translate(in, security.ProviderAIM)[0].Content.Text())
	})

	t.Run("roles map to user, assistant or system", func(t *testing.T) {
		in := []message.EndpointMessage{
			{From: message.FromUser}, {From: message.FromAssistant}, {From: "tool"},
		}
		out := security.Translate(in, security.ProviderAIM)
		assert.Equal(t, []string{"user", "assistant", "system"}, []string{out[0].Role, out[1].Role, out[2].Role})
	})

	t.Run("string messages translate identically twice", func(t *testing.T) {
		in := []message.EndpointMessage{{From: message.FromUser, Content: message.TextContent("same")}}
		first, err := json.Marshal(security.Translate(in, security.ProviderAIM))
		require.NoError(t, err)
		second, err := json.Marshal(security.Translate(in, security.ProviderAIM))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
		assert.JSONEq(t, `[{"role":"user","content":"same"}]`, string(first))
	})

	t.Run("unknown content shapes degrade to text", func(t *testing.T) {
		var m message.EndpointMessage
		require.NoError(t, json.Unmarshal([]byte(`{"from":"user","content":{"weird":1}}`), &m))
		out := security.Translate([]message.EndpointMessage{m}, security.ProviderAprism)
		assert.Equal(t, `{"weird":1}`, out[0].Content.Text())
	})
}
