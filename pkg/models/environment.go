package models

// Environment is the deployment tier the service runs in. Masking of
// sensitive parameter values is conditioned on it.
type Environment string

const (
	EnvLocal Environment = "local"
	EnvDev   Environment = "dev"
	EnvSIT   Environment = "sit"
	EnvUAT   Environment = "uat"
	EnvProd  Environment = "prod"
)

// IsUpper reports whether the tier is one where sensitive values must be
// redacted before they reach any audit sink.
func (e Environment) IsUpper() bool {
	return e == EnvUAT || e == EnvProd
}
