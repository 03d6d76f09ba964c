package jwtauth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// Settings reads the operator-configured lookup tables: token TTL overrides
// and the claim keys every issuance must carry. The engine re-reads these per
// call so operator changes apply without a restart.
type Settings interface {
	EnvValues(ctx context.Context) (map[string]string, error)
	RequiredPayloadFields(ctx context.Context) ([]string, error)
	SeedDefaults(ctx context.Context) error
}

type settings struct {
	db *bun.DB
}

var _ Settings = (*settings)(nil)

func NewSettingsRepository(db *bun.DB) Settings {
	return &settings{db: db}
}

func (r *settings) EnvValues(ctx context.Context) (map[string]string, error) {
	var rows []*EnvSetting
	err := r.db.NewSelect().
		Model(&rows).
		Where("?TableAlias.is_active = ?", true).
		Scan(ctx)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, StoreFailure(err)
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Name] = row.Value
	}

	return values, nil
}

func (r *settings) RequiredPayloadFields(ctx context.Context) ([]string, error) {
	var rows []*PayloadField
	err := r.db.NewSelect().
		Model(&rows).
		Where("?TableAlias.is_active = ?", true).
		Order("id ASC").
		Scan(ctx)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, StoreFailure(err)
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Key)
	}

	return keys, nil
}

// SeedDefaults installs the initial TTL and payload-key rows. It is an
// explicit idempotent step the host calls once after migrating, not a hook
// tied to table creation: rows that already exist are left untouched.
func (r *settings) SeedDefaults(ctx context.Context) error {
	defaults := []*EnvSetting{
		{Name: SettingAccessTokenExpiry, Value: "15", Remark: "Token expiry in minutes", Audit: Audit{IsActive: true}},
		{Name: SettingRefreshTokenExpiry, Value: "7", Remark: "Token expiry in days", Audit: Audit{IsActive: true}},
	}

	for _, row := range defaults {
		exists, err := r.db.NewSelect().
			Model((*EnvSetting)(nil)).
			Where("?TableAlias.env_name = ?", row.Name).
			Exists(ctx)
		if err != nil {
			return StoreFailure(err)
		}
		if exists {
			continue
		}
		if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
			return StoreFailure(err)
		}
	}

	field := &PayloadField{
		Key:    "username",
		Remark: "username for token identification",
		Audit:  Audit{IsActive: true},
	}

	exists, err := r.db.NewSelect().
		Model((*PayloadField)(nil)).
		Where("?TableAlias.payload_key = ?", field.Key).
		Exists(ctx)
	if err != nil {
		return StoreFailure(err)
	}
	if !exists {
		if _, err := r.db.NewInsert().Model(field).Exec(ctx); err != nil {
			return StoreFailure(err)
		}
	}

	return nil
}
