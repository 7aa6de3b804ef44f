package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Valid bool   `json:"valid"`
		Name  string `json:"name"`
	}

	t.Run("Plain Object", func(t *testing.T) {
		var p payload
		require.NoError(t, decodeJSON(`{"valid":true,"name":"Tasca do Ze"}`, &p))
		assert.True(t, p.Valid)
		assert.Equal(t, "Tasca do Ze", p.Name)
	})

	t.Run("Fenced With Language Tag", func(t *testing.T) {
		var p payload
		content := "```json\n{\"valid\":true,\"name\":\"Cafe Central\"}\n```"
		require.NoError(t, decodeJSON(content, &p))
		assert.Equal(t, "Cafe Central", p.Name)
	})

	t.Run("Leading Prose", func(t *testing.T) {
		var p payload
		content := "Here is the requested analysis:\n{\"valid\":false,\"name\":\"x\"}\nLet me know if you need more."
		require.NoError(t, decodeJSON(content, &p))
		assert.False(t, p.Valid)
	})

	t.Run("Braces Inside Strings", func(t *testing.T) {
		var p payload
		require.NoError(t, decodeJSON(`{"valid":true,"name":"Ze {& Co}"}`, &p))
		assert.Equal(t, "Ze {& Co}", p.Name)
	})

	t.Run("Escaped Quotes", func(t *testing.T) {
		var p payload
		require.NoError(t, decodeJSON(`{"valid":true,"name":"say \"hi\" {"}`, &p))
		assert.Equal(t, `say "hi" {`, p.Name)
	})

	t.Run("Array Document", func(t *testing.T) {
		var out []payload
		content := "```\n[{\"valid\":true,\"name\":\"a\"},{\"valid\":false,\"name\":\"b\"}]\n```"
		require.NoError(t, decodeJSON(content, &out))
		require.Len(t, out, 2)
		assert.Equal(t, "b", out[1].Name)
	})

	t.Run("No Document", func(t *testing.T) {
		var p payload
		assert.Error(t, decodeJSON("the model declined to answer", &p))
	})

	t.Run("Unbalanced Document", func(t *testing.T) {
		var p payload
		assert.Error(t, decodeJSON(`{"valid":true`, &p))
	})
}
