package jwtauth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// GrantTypeRefresh is the only grant RefreshGrant accepts.
const GrantTypeRefresh = "refresh_token"

// Authenticator is the thin public surface hosts embed: credential checks
// plus token lifecycle, all delegated to the stores and the Engine.
type Authenticator struct {
	repo   RepositoryManager
	engine *Engine
	logger Logger
}

// NewAuthenticator wires the facade from an already-constructed repository
// manager and engine config. No global registry is consulted.
func NewAuthenticator(repo RepositoryManager, cfg Config) (*Authenticator, error) {
	engine, err := NewEngine(repo, cfg)
	if err != nil {
		return nil, err
	}

	return &Authenticator{
		repo:   repo,
		engine: engine,
		logger: defLogger{},
	}, nil
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
		a.engine.WithLogger(logger)
	}
	return a
}

// Engine returns the lifecycle engine backing this facade.
func (a *Authenticator) Engine() *Engine {
	return a.engine
}

// Login authenticates the credential pair and issues a fresh token pair.
// The optional payload is embedded into the access token claims after the
// configured required keys are checked.
func (a *Authenticator) Login(ctx context.Context, username, password string, payload map[string]any) (*TokenPair, error) {
	if _, err := a.repo.Users().Authenticate(ctx, username, password); err != nil {
		a.logger.Info("login rejected for %q: %v", username, err)
		return nil, err
	}

	pair, err := a.engine.Issue(ctx, username, payload)
	if err != nil {
		a.logger.Error("login token issuance failed for %q: %v", username, err)
		return nil, err
	}

	return pair, nil
}

// Refresh rotates the user's token pair using the refresh-token grant.
func (a *Authenticator) Refresh(ctx context.Context, username, refreshToken string) (*TokenPair, error) {
	pair, err := a.engine.Refresh(ctx, username, refreshToken)
	if err != nil {
		a.logger.Info("refresh rejected for %q: %v", username, err)
		return nil, err
	}

	return pair, nil
}

// RefreshGrant guards Refresh behind an explicit grant type for hosts that
// pass the grant through from their transport layer.
func (a *Authenticator) RefreshGrant(ctx context.Context, username, refreshToken, grantType string) (*TokenPair, error) {
	if grantType != GrantTypeRefresh {
		return nil, goerrors.New("invalid grant type", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"grant_type": grantType})
	}

	return a.Refresh(ctx, username, refreshToken)
}

// ValidateAccessToken reports whether the token authenticates a currently
// active user. All failure detail is collapsed into false; hosts that need
// the claims or the reason use Engine().Validate directly.
func (a *Authenticator) ValidateAccessToken(ctx context.Context, accessToken string) bool {
	if _, err := a.engine.Validate(ctx, accessToken); err != nil {
		a.logger.Debug("access token rejected: %v", err)
		return false
	}
	return true
}

// TokenPayload decodes an access token and returns its claims. With
// ignoreExpiry set, expired tokens still decode (signature always verified).
func (a *Authenticator) TokenPayload(accessToken string, ignoreExpiry bool) (map[string]any, error) {
	return a.engine.Codec().Decode(accessToken, !ignoreExpiry)
}

// Logout retires the user's active session.
func (a *Authenticator) Logout(ctx context.Context, username string) error {
	if err := a.engine.Logout(ctx, username); err != nil {
		a.logger.Info("logout failed for %q: %v", username, err)
		return err
	}
	return nil
}

// Register creates a new user after request-shape validation.
func (a *Authenticator) Register(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	return NewRegisterUserHandler(a.repo).Execute(ctx, msg)
}

// UpdateProfile mutates the allow-listed profile fields of an existing user.
func (a *Authenticator) UpdateProfile(ctx context.Context, msg UpdateUserMessage) (*User, error) {
	return NewUpdateUserHandler(a.repo).Execute(ctx, msg)
}

// Deactivate soft-deletes the user; their token history stays intact.
func (a *Authenticator) Deactivate(ctx context.Context, username string) (*User, error) {
	return NewDeactivateUserHandler(a.repo).Execute(ctx, DeactivateUserMessage{Username: username})
}
