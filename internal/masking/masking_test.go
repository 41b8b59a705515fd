package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"query-registry-mcp/pkg/models"
)

var schema = []models.ParameterSpec{
	{Name: "email", Type: models.ParamTypeText, Sensitive: true},
	{Name: "status", Type: models.ParamTypeText},
}

func TestParametersUpperTiers(t *testing.T) {
	params := map[string]any{"email": "a@example.com", "status": "open"}

	for _, env := range []models.Environment{models.EnvUAT, models.EnvProd} {
		masked := Parameters(params, schema, env)
		assert.Equal(t, Redacted, masked["email"], "env %s", env)
		assert.Equal(t, "open", masked["status"], "env %s", env)
	}
}

func TestParametersLowerTiers(t *testing.T) {
	params := map[string]any{"email": "a@example.com", "status": "open"}

	for _, env := range []models.Environment{models.EnvLocal, models.EnvDev, models.EnvSIT} {
		masked := Parameters(params, schema, env)
		assert.Equal(t, "a@example.com", masked["email"], "env %s", env)
	}
}

func TestParametersNeverMutatesInput(t *testing.T) {
	params := map[string]any{"email": "a@example.com"}

	masked := Parameters(params, schema, models.EnvProd)
	assert.Equal(t, Redacted, masked["email"])
	// the values bound for execution stay untouched
	assert.Equal(t, "a@example.com", params["email"])
}

func TestParametersUndeclaredKeysPassThrough(t *testing.T) {
	// keys outside the schema (e.g. from a failed validation) are not sensitive
	params := map[string]any{"rogue": "v"}
	masked := Parameters(params, schema, models.EnvProd)
	assert.Equal(t, "v", masked["rogue"])
}
