package jwtauth

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// TokenPair is the issuance result handed back to the host. ExpiresIn
// reports the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Engine orchestrates the token lifecycle: issuance, validation, rotation,
// and revocation. It keeps no state between calls; everything durable lives
// in the injected stores.
type Engine struct {
	repo   RepositoryManager
	codec  *TokenCodec
	cfg    Config
	logger Logger
}

func NewEngine(repo RepositoryManager, cfg Config) (*Engine, error) {
	if repo == nil {
		return nil, ErrNotConfigured
	}

	logger := defLogger{}

	codec, err := NewTokenCodec(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		repo:   repo,
		codec:  codec,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (e *Engine) WithLogger(logger Logger) *Engine {
	if logger != nil {
		e.logger = logger
		e.codec.logger = logger
	}
	return e
}

// Codec exposes the token codec for hosts that need raw decode access.
func (e *Engine) Codec() *TokenCodec {
	return e.codec
}

// Issue mints a new access/refresh pair for the user. Required payload keys
// are checked before anything is written; the expiry of prior Active records
// and the insert of the new one share a single transaction, so the
// at-most-one-active invariant holds at every observation point.
func (e *Engine) Issue(ctx context.Context, username string, payload map[string]any) (*TokenPair, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	required, err := e.repo.Settings().RequiredPayloadFields(ctx)
	if err != nil {
		return nil, err
	}

	for _, key := range required {
		if _, ok := payload[key]; !ok {
			return nil, ErrMissingPayloadField.Clone().
				WithMetadata(map[string]any{"field": key})
		}
	}

	user, err := e.repo.Users().FindActiveByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	accessTTL, refreshTTL, err := e.resolveTTLs(ctx)
	if err != nil {
		return nil, err
	}

	// work on a copy so the caller's map never sees the added claims
	merged := make(map[string]any, len(payload)+1)
	for key, value := range payload {
		merged[key] = value
	}

	if len(user.Scopes) > 0 {
		if _, ok := merged["scopes"]; !ok {
			merged["scopes"] = user.Scopes
		}
	}

	access, accessExpiry, err := e.codec.Encode(username, merged, accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := NewRefreshToken()
	if err != nil {
		return nil, err
	}
	refreshExpiry := time.Now().UTC().Add(refreshTTL)

	record := &TokenRecord{
		UserID:        user.ID,
		AccessToken:   access,
		RefreshToken:  refresh,
		AccessExpiry:  accessExpiry,
		RefreshExpiry: refreshExpiry,
		Status:        TokenStatusActive,
	}

	err = e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := e.repo.Tokens().ExpireAllTx(ctx, tx, user.ID); err != nil {
			return err
		}

		if _, err := e.repo.Tokens().InsertTx(ctx, tx, record); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, StoreFailure(err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "jwt",
		ExpiresIn:    int(accessTTL.Seconds()),
	}, nil
}

// Validate checks an access token for normal authentication: signature and
// expiry both enforced, and the subject must still map to an active user. A
// token whose exp equals the current instant counts as expired.
func (e *Engine) Validate(ctx context.Context, accessToken string) (map[string]any, error) {
	claims, err := e.codec.Decode(accessToken, true)
	if err != nil {
		return nil, err
	}

	expiry, err := jwt.MapClaims(claims).GetExpirationTime()
	if err != nil || expiry == nil {
		return nil, ErrTokenMalformed
	}

	if !time.Now().UTC().Before(expiry.Time.UTC()) {
		return nil, ErrTokenExpired
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, ErrTokenMalformed
	}

	if _, err := e.repo.Users().FindActiveByUsername(ctx, subject); err != nil {
		return nil, err
	}

	return claims, nil
}

// Refresh rotates a token pair. The old record is consumed before the
// replacement is issued; a consumed refresh token stays consumed even when
// the subsequent issue fails, and a concurrent retry loses the conditional
// update and observes the collapsed invalid-refresh failure.
func (e *Engine) Refresh(ctx context.Context, username, refreshToken string) (*TokenPair, error) {
	user, err := e.repo.Users().FindActiveByUsername(ctx, username)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	record, err := e.repo.Tokens().FindActiveRefresh(ctx, user.ID, refreshToken)
	if err != nil {
		return nil, err
	}

	expired := record.RefreshExpired(time.Now())

	// One-time use: the record is retired whether or not a new pair follows.
	if err := e.repo.Tokens().Consume(ctx, record); err != nil {
		return nil, err
	}

	if expired {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := e.codec.Decode(record.AccessToken, false)
	if err != nil {
		e.logger.Error("refresh could not recover payload from stored access token: %v", err)
		return nil, ErrInvalidRefreshToken
	}

	return e.Issue(ctx, username, StripReservedClaims(claims))
}

// Logout retires the user's active record. Missing user and missing session
// stay distinct failures; the host decides how much to reveal.
func (e *Engine) Logout(ctx context.Context, username string) error {
	user, err := e.repo.Users().FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	record, err := e.repo.Tokens().FindActiveByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	record.MarkExpired()

	return e.repo.Tokens().Revise(ctx, record)
}

// resolveTTLs picks the configured token lifetimes, falling back to the
// settings table rows when the constructor values are zero.
func (e *Engine) resolveTTLs(ctx context.Context) (time.Duration, time.Duration, error) {
	accessMinutes := e.cfg.GetAccessTokenTTL()
	refreshDays := e.cfg.GetRefreshTokenTTL()

	if accessMinutes == 0 || refreshDays == 0 {
		values, err := e.repo.Settings().EnvValues(ctx)
		if err != nil {
			return 0, 0, err
		}

		if accessMinutes == 0 {
			raw, ok := values[SettingAccessTokenExpiry]
			if !ok {
				return 0, 0, ErrNotConfigured.Clone().
					WithMetadata(map[string]any{"setting": SettingAccessTokenExpiry})
			}
			if accessMinutes, err = strconv.Atoi(raw); err != nil {
				return 0, 0, ErrNotConfigured.Clone().
					WithMetadata(map[string]any{"setting": SettingAccessTokenExpiry, "value": raw})
			}
		}

		if refreshDays == 0 {
			raw, ok := values[SettingRefreshTokenExpiry]
			if !ok {
				return 0, 0, ErrNotConfigured.Clone().
					WithMetadata(map[string]any{"setting": SettingRefreshTokenExpiry})
			}
			if refreshDays, err = strconv.Atoi(raw); err != nil {
				return 0, 0, ErrNotConfigured.Clone().
					WithMetadata(map[string]any{"setting": SettingRefreshTokenExpiry, "value": raw})
			}
		}
	}

	access := time.Duration(accessMinutes) * time.Minute
	refresh := time.Duration(refreshDays) * 24 * time.Hour

	return access, refresh, nil
}
