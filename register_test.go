package jwtauth_test

import (
	"context"
	"testing"

	"github.com/goliatone/hashid/pkg/hashid"
	jwtauth "github.com/nhyadav/go-jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserMessageValidate(t *testing.T) {
	valid := jwtauth.RegisterUserMessage{
		FirstName:       "Alice",
		LastName:        "Smith",
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "secret-pass",
		ConfirmPassword: "secret-pass",
	}

	tests := []struct {
		name    string
		mutate  func(m *jwtauth.RegisterUserMessage)
		wantErr bool
	}{
		{
			name:   "valid message",
			mutate: func(m *jwtauth.RegisterUserMessage) {},
		},
		{
			name:   "username is optional",
			mutate: func(m *jwtauth.RegisterUserMessage) { m.Username = "" },
		},
		{
			name:    "username too short",
			mutate:  func(m *jwtauth.RegisterUserMessage) { m.Username = "ab" },
			wantErr: true,
		},
		{
			name:    "missing email",
			mutate:  func(m *jwtauth.RegisterUserMessage) { m.Email = "" },
			wantErr: true,
		},
		{
			name:    "invalid email",
			mutate:  func(m *jwtauth.RegisterUserMessage) { m.Email = "not-an-email" },
			wantErr: true,
		},
		{
			name:    "missing first name",
			mutate:  func(m *jwtauth.RegisterUserMessage) { m.FirstName = "" },
			wantErr: true,
		},
		{
			name:    "password too short",
			mutate:  func(m *jwtauth.RegisterUserMessage) { m.Password, m.ConfirmPassword = "short", "short" },
			wantErr: true,
		},
		{
			name:    "confirmation mismatch",
			mutate:  func(m *jwtauth.RegisterUserMessage) { m.ConfirmPassword = "different" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)

			err := msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegisterUserHandlerDerivesUsername(t *testing.T) {
	repo := NewMockRepository()
	repo.UsersRepo.On("RegisterTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&jwtauth.User{}, nil)

	handler := jwtauth.NewRegisterUserHandler(repo)

	_, err := handler.Execute(context.Background(), jwtauth.RegisterUserMessage{
		FirstName:       "Alice",
		LastName:        "Smith",
		Email:           "alice.smith@example.com",
		Password:        "secret-pass",
		ConfirmPassword: "secret-pass",
	})
	require.NoError(t, err)

	record := repo.UsersRepo.Calls[0].Arguments.Get(2).(*jwtauth.User)
	assert.Equal(t, "alice.smith", record.Username)
}

func TestRegisterUserHandlerHashid(t *testing.T) {
	repo := NewMockRepository()
	repo.UsersRepo.On("RegisterTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&jwtauth.User{}, nil)

	handler := jwtauth.NewRegisterUserHandler(repo)

	_, err := handler.Execute(context.Background(), jwtauth.RegisterUserMessage{
		FirstName:       "Alice",
		LastName:        "Smith",
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "secret-pass",
		ConfirmPassword: "secret-pass",
		UseHashid:       true,
	})
	require.NoError(t, err)

	expected, err := hashid.NewUUID("alice@example.com")
	require.NoError(t, err)

	record := repo.UsersRepo.Calls[0].Arguments.Get(2).(*jwtauth.User)
	assert.Equal(t, expected, record.ID)
}

func TestRegisterUserHandlerCancelledContext(t *testing.T) {
	repo := NewMockRepository()
	handler := jwtauth.NewRegisterUserHandler(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := handler.Execute(ctx, jwtauth.RegisterUserMessage{
		FirstName:       "Alice",
		LastName:        "Smith",
		Email:           "alice@example.com",
		Password:        "secret-pass",
		ConfirmPassword: "secret-pass",
	})
	require.Error(t, err)

	repo.UsersRepo.AssertNotCalled(t, "RegisterTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateUserMessageValidate(t *testing.T) {
	email := "new@example.com"
	badEmail := "nope"
	shortPassword := "short"

	tests := []struct {
		name    string
		msg     jwtauth.UpdateUserMessage
		wantErr bool
	}{
		{
			name: "valid update",
			msg:  jwtauth.UpdateUserMessage{Username: "alice", Email: &email},
		},
		{
			name:    "missing username",
			msg:     jwtauth.UpdateUserMessage{Email: &email},
			wantErr: true,
		},
		{
			name:    "invalid email",
			msg:     jwtauth.UpdateUserMessage{Username: "alice", Email: &badEmail},
			wantErr: true,
		},
		{
			name:    "short password",
			msg:     jwtauth.UpdateUserMessage{Username: "alice", Password: &shortPassword},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUpdateUserHandler(t *testing.T) {
	repo := NewMockRepository()
	first := "Alicia"

	repo.UsersRepo.On("UpdateProfileTx", mock.Anything, mock.Anything, "alice", mock.Anything).
		Return(&jwtauth.User{Username: "alice", FirstName: first}, nil)

	handler := jwtauth.NewUpdateUserHandler(repo)

	user, err := handler.Execute(context.Background(), jwtauth.UpdateUserMessage{
		Username:  "alice",
		FirstName: &first,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", user.FirstName)

	update := repo.UsersRepo.Calls[0].Arguments.Get(3).(jwtauth.ProfileUpdate)
	require.NotNil(t, update.FirstName)
	assert.Equal(t, "Alicia", *update.FirstName)
}
