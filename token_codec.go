package jwtauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// reserved claim keys the codec always controls; caller payload entries with
// these keys are overwritten before signing.
var reservedClaimKeys = []string{"sub", "iss", "iat", "exp", "jti"}

// TokenCodec encodes and decodes the signed access token format. It is
// independent of storage; the lifecycle engine composes it with the stores.
type TokenCodec struct {
	signingKey []byte
	method     jwt.SigningMethod
	issuer     string
	logger     Logger
}

// NewTokenCodec builds a codec from the engine config. An unset signing
// method defaults to HS256; only HMAC methods are accepted.
func NewTokenCodec(cfg Config, logger Logger) (*TokenCodec, error) {
	if logger == nil {
		logger = defLogger{}
	}

	if cfg == nil || cfg.GetSigningKey() == "" {
		return nil, ErrNotConfigured
	}

	alg := cfg.GetSigningMethod()
	if alg == "" {
		alg = "HS256"
	}

	method := jwt.GetSigningMethod(alg)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New(
			fmt.Sprintf("unsupported signing method: %s", alg),
			errors.CategoryBadInput,
		)
	}

	return &TokenCodec{
		signingKey: []byte(cfg.GetSigningKey()),
		method:     method,
		issuer:     cfg.GetIssuer(),
		logger:     logger,
	}, nil
}

// Encode signs an access token for the subject. Payload entries are merged
// first and the reserved claims written last, so sub/iss/iat/exp/jti cannot
// be spoofed through the payload. The random jti makes every issued token
// distinct even when subject, payload, and timestamps all coincide.
func (c *TokenCodec) Encode(username string, payload map[string]any, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	issuer := c.issuer
	if issuer == "" {
		issuer = username
	}

	claims := jwt.MapClaims{}
	for key, value := range payload {
		claims[key] = value
	}

	claims["sub"] = username
	claims["iss"] = issuer
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(expiresAt)
	claims["jti"] = uuid.NewString()

	token := jwt.NewWithClaims(c.method, claims)

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, expiresAt, nil
}

// Decode verifies the signature and returns the claims. With verifyExpiry
// set, expired tokens fail with ErrTokenExpired; without it, expired tokens
// still decode so refresh can recover the caller payload. Signature failures
// are distinct from expiry in both modes.
func (c *TokenCodec) Decode(tokenString string, verifyExpiry bool) (map[string]any, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
	}
	if !verifyExpiry {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("token codec rejected unexpected signing method %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, options...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	return claims, nil
}

// StripReservedClaims removes the codec-controlled keys, leaving only the
// caller-supplied payload. Used at refresh time to carry payload fields into
// the replacement token.
func StripReservedClaims(claims map[string]any) map[string]any {
	payload := make(map[string]any, len(claims))
	for key, value := range claims {
		payload[key] = value
	}
	for _, key := range reservedClaimKeys {
		delete(payload, key)
	}
	return payload
}

// NewRefreshToken returns a 64 character random hex refresh token value.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate refresh token")
	}
	return hex.EncodeToString(buf), nil
}
