package jwtauth

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileUpdate is the allow-listed set of mutable user fields. Username is
// immutable; anything not listed here cannot be changed through the store.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	Scopes    []string
}

func (p ProfileUpdate) isZero() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		p.Password == nil && p.Scopes == nil
}

type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	FindActiveByUsername(ctx context.Context, username string) (*User, error)
	FindActiveByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)

	Authenticate(ctx context.Context, username, password string) (*User, error)

	UpdateProfile(ctx context.Context, username string, update ProfileUpdate) (*User, error)
	UpdateProfileTx(ctx context.Context, tx bun.IDB, username string, update ProfileUpdate) (*User, error)
	Deactivate(ctx context.Context, username string) (*User, error)
	DeactivateTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts a new user after checking that no active user already
// holds the username or email. Inactive rows do not block reuse.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil || user.Username == "" {
		return nil, goerrors.New("user record requires a username", goerrors.CategoryBadInput)
	}

	taken, err := a.activeExistsTx(ctx, tx, "username", user.Username, uuid.Nil)
	if err != nil {
		return nil, StoreFailure(err)
	}
	if taken {
		return nil, ErrDuplicateUsername
	}

	taken, err = a.activeExistsTx(ctx, tx, "email", user.Email, uuid.Nil)
	if err != nil {
		return nil, StoreFailure(err)
	}
	if taken {
		return nil, ErrDuplicateEmail
	}

	prepareUserDefaults(user)

	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) FindByUsername(ctx context.Context, username string) (*User, error) {
	return a.FindByUsernameTx(ctx, a.db, username)
}

func (a *users) FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, StoreFailure(err)
	}

	return record, nil
}

func (a *users) FindActiveByUsername(ctx context.Context, username string) (*User, error) {
	return a.FindActiveByUsernameTx(ctx, a.db, username)
}

func (a *users) FindActiveByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Where("?TableAlias.is_active = ?", true).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, StoreFailure(err)
	}

	return record, nil
}

// Authenticate verifies a username/password pair against the active user's
// digest. Unknown user and wrong password collapse into the same failure so
// callers cannot discover which usernames exist.
func (a *users) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := a.FindActiveByUsername(ctx, username)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (a *users) UpdateProfile(ctx context.Context, username string, update ProfileUpdate) (*User, error) {
	return a.UpdateProfileTx(ctx, a.db, username, update)
}

// UpdateProfileTx applies only the allow-listed fields from ProfileUpdate.
// Username is never touched; an email change is re-checked against other
// active users.
func (a *users) UpdateProfileTx(ctx context.Context, tx bun.IDB, username string, update ProfileUpdate) (*User, error) {
	if update.isZero() {
		return nil, goerrors.New("no updatable fields provided", goerrors.CategoryBadInput)
	}

	user, err := a.FindByUsernameTx(ctx, tx, username)
	if err != nil {
		return nil, err
	}

	if update.Email != nil && *update.Email != user.Email {
		taken, err := a.activeExistsTx(ctx, tx, "email", *update.Email, user.ID)
		if err != nil {
			return nil, StoreFailure(err)
		}
		if taken {
			return nil, ErrDuplicateEmail
		}
		user.Email = *update.Email
	}

	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}

	if update.LastName != nil {
		user.LastName = *update.LastName
	}

	if update.Scopes != nil {
		user.Scopes = update.Scopes
	}

	if update.Password != nil {
		hash, err := HashPassword(*update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	updated, err := a.Repository.UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
	if err != nil {
		return nil, StoreFailure(err)
	}

	return updated, nil
}

func (a *users) Deactivate(ctx context.Context, username string) (*User, error) {
	return a.DeactivateTx(ctx, a.db, username)
}

// DeactivateTx clears the activity flag. The row stays behind so token
// history keeps a valid owner.
func (a *users) DeactivateTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	user, err := a.FindByUsernameTx(ctx, tx, username)
	if err != nil {
		return nil, err
	}

	_, err = tx.NewUpdate().
		Model(user).
		Set("is_active = ?", false).
		Where("?TableAlias.id = ?", user.ID).
		Exec(ctx)

	if err != nil {
		return nil, StoreFailure(err)
	}

	user.IsActive = false
	return user, nil
}

func (a *users) activeExistsTx(ctx context.Context, tx bun.IDB, column, value string, exclude uuid.UUID) (bool, error) {
	if value == "" {
		return false, nil
	}

	q := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias."+column+" = ?", value).
		Where("?TableAlias.is_active = ?", true)

	if exclude != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", exclude)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.IsActive = true
}
