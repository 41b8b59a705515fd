// Package auth resolves the opaque caller identity attached to each audit
// record. Identity comes from a verified OIDC bearer token, or from a fixed
// development identity when the bypass is enabled in a lower tier.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"

	"query-registry-mcp/internal/config"
)

// Logger defines the logging interface compatible with the application
// logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// DevCaller is the identity assigned when the dev-mode bypass is active.
const DevCaller = "dev@localhost"

type contextKey struct{}

// WithCaller returns ctx carrying the caller identity.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

// CallerFromContext returns the caller identity, or "" when none was
// attached.
func CallerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(contextKey{}).(string)
	return caller
}

// Auth verifies bearer tokens against the configured OIDC issuer.
type Auth struct {
	verifier *oidc.IDTokenVerifier
	logger   Logger
	bypass   bool
}

// New creates a new Auth object using values from the application
// configuration. With the dev bypass enabled in a lower tier no provider
// connection is made and every request runs as DevCaller.
func New(ctx context.Context, cfg *config.Config, logger Logger) (*Auth, error) {
	if cfg.Auth.DevModeBypass {
		if cfg.Env().IsUpper() {
			return nil, errors.New("auth dev_mode_bypass is not allowed in uat/prod")
		}
		logger.Info("auth bypass enabled", "caller", DevCaller)
		return &Auth{logger: logger, bypass: true}, nil
	}

	if cfg.Auth.Issuer == "" {
		return nil, errors.New("auth configuration is incomplete: issuer is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	// Access tokens often carry an API audience rather than the client ID,
	// so only pin the client ID when one is configured.
	oidcCfg := &oidc.Config{SkipClientIDCheck: cfg.Auth.ClientID == "", ClientID: cfg.Auth.ClientID}
	return &Auth{
		verifier: provider.Verifier(oidcCfg),
		logger:   logger,
	}, nil
}

// RequireAuth is middleware that verifies the Authorization bearer token and
// injects the resolved caller identity into the request context.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.bypass {
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), DevCaller)))
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		token, err := a.verifier.Verify(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}

		var claims struct {
			Email string `json:"email"`
		}
		caller := token.Subject
		if err := token.Claims(&claims); err == nil && claims.Email != "" {
			caller = claims.Email
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}
