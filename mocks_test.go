package jwtauth_test

import (
	"context"
	"database/sql"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	jwtauth "github.com/nhyadav/go-jwtauth"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockUsers implements jwtauth.Users. The embedded generic repository is left
// nil; only the methods mocked below may be called in tests.
type MockUsers struct {
	repository.Repository[*jwtauth.User]
	mock.Mock
}

func userResult(args mock.Arguments) (*jwtauth.User, error) {
	if user, ok := args.Get(0).(*jwtauth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *jwtauth.User) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, user))
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *jwtauth.User) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, tx, user))
}

func (m *MockUsers) FindByUsername(ctx context.Context, username string) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, username))
}

func (m *MockUsers) FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, tx, username))
}

func (m *MockUsers) FindActiveByUsername(ctx context.Context, username string) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, username))
}

func (m *MockUsers) FindActiveByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, tx, username))
}

func (m *MockUsers) Authenticate(ctx context.Context, username, password string) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, username, password))
}

func (m *MockUsers) UpdateProfile(ctx context.Context, username string, update jwtauth.ProfileUpdate) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, username, update))
}

func (m *MockUsers) UpdateProfileTx(ctx context.Context, tx bun.IDB, username string, update jwtauth.ProfileUpdate) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, tx, username, update))
}

func (m *MockUsers) Deactivate(ctx context.Context, username string) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, username))
}

func (m *MockUsers) DeactivateTx(ctx context.Context, tx bun.IDB, username string) (*jwtauth.User, error) {
	return userResult(m.Called(ctx, tx, username))
}

// MockTokens implements jwtauth.Tokens
type MockTokens struct {
	mock.Mock
}

func tokenResult(args mock.Arguments) (*jwtauth.TokenRecord, error) {
	if record, ok := args.Get(0).(*jwtauth.TokenRecord); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokens) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*jwtauth.TokenRecord, error) {
	return tokenResult(m.Called(ctx, userID))
}

func (m *MockTokens) FindActiveByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*jwtauth.TokenRecord, error) {
	return tokenResult(m.Called(ctx, tx, userID))
}

func (m *MockTokens) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*jwtauth.TokenRecord, error) {
	args := m.Called(ctx, userID)
	if records, ok := args.Get(0).([]*jwtauth.TokenRecord); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokens) ExpireAll(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockTokens) ExpireAllTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	return m.Called(ctx, tx, userID).Error(0)
}

func (m *MockTokens) Insert(ctx context.Context, record *jwtauth.TokenRecord) (*jwtauth.TokenRecord, error) {
	return tokenResult(m.Called(ctx, record))
}

func (m *MockTokens) InsertTx(ctx context.Context, tx bun.IDB, record *jwtauth.TokenRecord) (*jwtauth.TokenRecord, error) {
	return tokenResult(m.Called(ctx, tx, record))
}

func (m *MockTokens) FindActiveRefresh(ctx context.Context, userID uuid.UUID, refreshToken string) (*jwtauth.TokenRecord, error) {
	return tokenResult(m.Called(ctx, userID, refreshToken))
}

func (m *MockTokens) FindActiveRefreshTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, refreshToken string) (*jwtauth.TokenRecord, error) {
	return tokenResult(m.Called(ctx, tx, userID, refreshToken))
}

func (m *MockTokens) Consume(ctx context.Context, record *jwtauth.TokenRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockTokens) ConsumeTx(ctx context.Context, tx bun.IDB, record *jwtauth.TokenRecord) error {
	return m.Called(ctx, tx, record).Error(0)
}

func (m *MockTokens) Revise(ctx context.Context, record *jwtauth.TokenRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockTokens) ReviseTx(ctx context.Context, tx bun.IDB, record *jwtauth.TokenRecord) error {
	return m.Called(ctx, tx, record).Error(0)
}

// MockSettings implements jwtauth.Settings
type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) EnvValues(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if values, ok := args.Get(0).(map[string]string); ok {
		return values, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettings) RequiredPayloadFields(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if keys, ok := args.Get(0).([]string); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettings) SeedDefaults(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockRepository implements jwtauth.RepositoryManager over the store mocks.
// RunInTx invokes the callback with a zero transaction so the Tx-suffixed
// expectations still fire.
type MockRepository struct {
	UsersRepo    *MockUsers
	TokensRepo   *MockTokens
	SettingsRepo *MockSettings
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		UsersRepo:    &MockUsers{},
		TokensRepo:   &MockTokens{},
		SettingsRepo: &MockSettings{},
	}
}

func (m *MockRepository) Users() jwtauth.Users       { return m.UsersRepo }
func (m *MockRepository) Tokens() jwtauth.Tokens     { return m.TokensRepo }
func (m *MockRepository) Settings() jwtauth.Settings { return m.SettingsRepo }
func (m *MockRepository) Validate() error            { return nil }
func (m *MockRepository) MustValidate()              {}

func (m *MockRepository) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func testUser(username string) *jwtauth.User {
	return &jwtauth.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		Audit:    jwtauth.Audit{IsActive: true},
	}
}
