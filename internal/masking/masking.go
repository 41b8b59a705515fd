// Package masking produces the audit-safe view of parameter values. It never
// touches the values bound for execution.
package masking

import "query-registry-mcp/pkg/models"

// Redacted is the fixed marker substituted for sensitive values in upper
// tiers.
const Redacted = "***MASKED***"

// Parameters returns a copy of params safe for audit recording.
//
// In lower tiers (local / dev / sit) values pass through unchanged to aid
// debugging. In upper tiers (uat / prod) values of parameters flagged
// sensitive in the registry definition are replaced with the redaction
// marker. Non-sensitive parameters are never masked.
func Parameters(params map[string]any, specs []models.ParameterSpec, env models.Environment) map[string]any {
	out := make(map[string]any, len(params))
	if !env.IsUpper() {
		for k, v := range params {
			out[k] = v
		}
		return out
	}

	sensitive := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Sensitive {
			sensitive[spec.Name] = true
		}
	}
	for k, v := range params {
		if sensitive[k] {
			out[k] = Redacted
		} else {
			out[k] = v
		}
	}
	return out
}
