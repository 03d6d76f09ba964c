package jwtauth

import "fmt"

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the engine options supplied at construction time.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	// GetIssuer overrides the iss claim on issued tokens. Empty means the
	// subject username is used.
	GetIssuer() string
	// GetAccessTokenTTL is the access token lifetime in minutes. Zero falls
	// back to the ACCESS_TOKEN_EXPIRY settings row.
	GetAccessTokenTTL() int
	// GetRefreshTokenTTL is the refresh token lifetime in days. Zero falls
	// back to the REFRESH_TOKEN_EXPIRY settings row.
	GetRefreshTokenTTL() int
}

// SimpleConfig is a ready-made Config for hosts without their own config layer.
type SimpleConfig struct {
	SigningKey      string
	SigningMethod   string
	Issuer          string
	AccessTokenTTL  int
	RefreshTokenTTL int
}

func (c SimpleConfig) GetSigningKey() string    { return c.SigningKey }
func (c SimpleConfig) GetSigningMethod() string { return c.SigningMethod }
func (c SimpleConfig) GetIssuer() string        { return c.Issuer }
func (c SimpleConfig) GetAccessTokenTTL() int   { return c.AccessTokenTTL }
func (c SimpleConfig) GetRefreshTokenTTL() int  { return c.RefreshTokenTTL }

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] JWTAUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] JWTAUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] JWTAUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] JWTAUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
