package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****6789", MaskSecret("whsec_123456789"))
}

func TestMaskSensitive(t *testing.T) {
	in := map[string]any{
		"template_id": "imobi360",
		"automation": map[string]any{
			"signingSecret": "supersecretvalue",
			"webhookUrl":    "https://runner.example.com/hook",
		},
		"api_keys": []any{"key_aaaa1111", "key_bbbb2222"},
		"":         "dropped",
	}
	out := MaskSensitive(in)

	assert.Equal(t, "imobi360", out["template_id"])
	automation := out["automation"].(map[string]any)
	assert.Equal(t, "****alue", automation["signingSecret"])
	assert.Equal(t, "https://runner.example.com/hook", automation["webhookUrl"])
	assert.Equal(t, []any{"****1111", "****2222"}, out["api_keys"])
	assert.NotContains(t, out, "")
	assert.Equal(t, "supersecretvalue", in["automation"].(map[string]any)["signingSecret"])
}
