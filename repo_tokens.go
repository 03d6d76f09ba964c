package jwtauth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tokens persists issued token records. Multi-row updates are single
// statements, so partial failure cannot leave a user with two Active rows.
type Tokens interface {
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*TokenRecord, error)
	FindActiveByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*TokenRecord, error)

	FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*TokenRecord, error)

	// ExpireAll transitions every active record for the user to
	// Expired+inactive in one statement.
	ExpireAll(ctx context.Context, userID uuid.UUID) error
	ExpireAllTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error

	Insert(ctx context.Context, record *TokenRecord) (*TokenRecord, error)
	InsertTx(ctx context.Context, tx bun.IDB, record *TokenRecord) (*TokenRecord, error)

	FindActiveRefresh(ctx context.Context, userID uuid.UUID, refreshToken string) (*TokenRecord, error)
	FindActiveRefreshTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, refreshToken string) (*TokenRecord, error)

	// Consume retires the record with a conditional update keyed on the
	// activity flag. Exactly one concurrent caller wins; the rest observe
	// ErrInvalidRefreshToken.
	Consume(ctx context.Context, record *TokenRecord) error
	ConsumeTx(ctx context.Context, tx bun.IDB, record *TokenRecord) error

	// Revise persists mutated status/revocation fields on an existing record.
	Revise(ctx context.Context, record *TokenRecord) error
	ReviseTx(ctx context.Context, tx bun.IDB, record *TokenRecord) error
}

type tokens struct {
	db *bun.DB
}

var _ Tokens = (*tokens)(nil)

func NewTokensRepository(db *bun.DB) Tokens {
	return &tokens{db: db}
}

func (r *tokens) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*TokenRecord, error) {
	return r.FindActiveByUserTx(ctx, r.db, userID)
}

func (r *tokens) FindActiveByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*TokenRecord, error) {
	record := &TokenRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.status = ?", TokenStatusActive).
		Where("?TableAlias.is_active = ?", true).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, StoreFailure(err)
	}

	return record, nil
}

func (r *tokens) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*TokenRecord, error) {
	var records []*TokenRecord
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*TokenRecord{}, nil
		}
		return nil, StoreFailure(err)
	}

	return records, nil
}

func (r *tokens) ExpireAll(ctx context.Context, userID uuid.UUID) error {
	return r.ExpireAllTx(ctx, r.db, userID)
}

func (r *tokens) ExpireAllTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*TokenRecord)(nil)).
		Set("status = ?", TokenStatusExpired).
		Set("is_active = ?", false).
		Set("updated_at = ?", time.Now().UTC()).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.status = ? OR ?TableAlias.is_active = ?", TokenStatusActive, true).
		Exec(ctx)

	if err != nil {
		return StoreFailure(err)
	}

	return nil
}

func (r *tokens) Insert(ctx context.Context, record *TokenRecord) (*TokenRecord, error) {
	return r.InsertTx(ctx, r.db, record)
}

func (r *tokens) InsertTx(ctx context.Context, tx bun.IDB, record *TokenRecord) (*TokenRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.IsActive = true
	record.Status = TokenStatusActive

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, StoreFailure(err)
	}

	return record, nil
}

func (r *tokens) FindActiveRefresh(ctx context.Context, userID uuid.UUID, refreshToken string) (*TokenRecord, error) {
	return r.FindActiveRefreshTx(ctx, r.db, userID, refreshToken)
}

func (r *tokens) FindActiveRefreshTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, refreshToken string) (*TokenRecord, error) {
	record := &TokenRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.refresh_token = ?", refreshToken).
		Where("?TableAlias.status = ?", TokenStatusActive).
		Where("?TableAlias.is_revoked = ?", false).
		Where("?TableAlias.is_active = ?", true).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, StoreFailure(err)
	}

	return record, nil
}

func (r *tokens) Consume(ctx context.Context, record *TokenRecord) error {
	return r.ConsumeTx(ctx, r.db, record)
}

func (r *tokens) ConsumeTx(ctx context.Context, tx bun.IDB, record *TokenRecord) error {
	now := time.Now().UTC()

	res, err := tx.NewUpdate().
		Model((*TokenRecord)(nil)).
		Set("status = ?", TokenStatusExpired).
		Set("is_revoked = ?", true).
		Set("revoked_at = ?", now).
		Set("is_active = ?", false).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", record.ID).
		Where("?TableAlias.is_active = ?", true).
		Exec(ctx)

	if err != nil {
		return StoreFailure(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return StoreFailure(err)
	}

	// Zero rows means another caller consumed the record first.
	if affected == 0 {
		return ErrInvalidRefreshToken
	}

	record.MarkConsumed(now)
	return nil
}

func (r *tokens) Revise(ctx context.Context, record *TokenRecord) error {
	return r.ReviseTx(ctx, r.db, record)
}

func (r *tokens) ReviseTx(ctx context.Context, tx bun.IDB, record *TokenRecord) error {
	now := time.Now().UTC()
	record.UpdatedAt = &now

	_, err := tx.NewUpdate().
		Model(record).
		Column("status", "is_revoked", "revoked_at", "is_active", "updated_at").
		WherePK().
		Exec(ctx)

	if err != nil {
		return StoreFailure(err)
	}

	return nil
}
