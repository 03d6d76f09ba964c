package jwtauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenStatus is the lifecycle state of a token record
type TokenStatus = string

const (
	// TokenStatusActive marks the single record currently valid for a user
	TokenStatusActive TokenStatus = "Active"
	// TokenStatusExpired marks records that were rotated, revoked, or timed out
	TokenStatusExpired TokenStatus = "Expired"
)

// Setting names read by the engine from the env_settings table.
const (
	SettingAccessTokenExpiry  = "ACCESS_TOKEN_EXPIRY"
	SettingRefreshTokenExpiry = "REFRESH_TOKEN_EXPIRY"
)

// Audit carries the columns shared by every record: soft-delete style
// activity flag plus bookkeeping timestamps. Embedded, not inherited.
type Audit struct {
	IsActive  bool       `bun:"is_active,notnull" json:"is_active,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// User is the credential record. Rows are never deleted; deactivation clears
// the activity flag so token history keeps its foreign keys.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string    `bun:"username,notnull" json:"username,omitempty"`
	Email         string    `bun:"email,notnull" json:"email,omitempty"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	FirstName     string    `bun:"first_name" json:"first_name,omitempty"`
	LastName      string    `bun:"last_name" json:"last_name,omitempty"`
	Scopes        []string  `bun:"scopes,type:jsonb" json:"scopes,omitempty"`
	Audit
}

// TokenRecord is one issued access/refresh pair. At most one record per user
// is Active with the activity flag set; the engine enforces this on issue.
type TokenRecord struct {
	bun.BaseModel `bun:"table:jwt_tokens,alias:tok"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID   `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User       `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	AccessToken   string      `bun:"access_token,notnull" json:"access_token,omitempty"`
	RefreshToken  string      `bun:"refresh_token,notnull" json:"refresh_token,omitempty"`
	AccessExpiry  time.Time   `bun:"access_expiry,notnull" json:"access_expiry,omitempty"`
	RefreshExpiry time.Time   `bun:"refresh_expiry,notnull" json:"refresh_expiry,omitempty"`
	IsRevoked     bool        `bun:"is_revoked,notnull" json:"is_revoked,omitempty"`
	RevokedAt     *time.Time  `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	Status        TokenStatus `bun:"status,notnull" json:"status,omitempty"`
	Audit
}

// MarkConsumed transitions the record out of circulation: Expired, revoked,
// inactive. Used for rotation, explicit revocation, and lazy expiry.
func (t *TokenRecord) MarkConsumed(now time.Time) *TokenRecord {
	t.Status = TokenStatusExpired
	t.IsRevoked = true
	n := now.UTC()
	t.RevokedAt = &n
	t.IsActive = false
	return t
}

// MarkExpired transitions the record to Expired without flagging revocation,
// the logout path.
func (t *TokenRecord) MarkExpired() *TokenRecord {
	t.Status = TokenStatusExpired
	t.IsActive = false
	return t
}

// RefreshExpired reports whether the refresh half of the pair is past its
// expiry at the given instant. Timestamps read back from storage may be
// naive; both sides are normalized to UTC before comparing.
func (t *TokenRecord) RefreshExpired(now time.Time) bool {
	return !t.RefreshExpiry.UTC().After(now.UTC())
}

// EnvSetting is an operator-configured lookup row (token TTLs).
type EnvSetting struct {
	bun.BaseModel `bun:"table:env_settings,alias:env"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Name          string `bun:"env_name,notnull" json:"env_name,omitempty"`
	Value         string `bun:"env_value,notnull" json:"env_value,omitempty"`
	Remark        string `bun:"remark" json:"remark,omitempty"`
	Audit
}

// PayloadField names a claim key business logic must supply on every issuance.
type PayloadField struct {
	bun.BaseModel `bun:"table:access_token_payload,alias:pf"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Key           string `bun:"payload_key,notnull" json:"payload_key,omitempty"`
	Remark        string `bun:"remark" json:"remark,omitempty"`
	Audit
}
