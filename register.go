package jwtauth

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirm_password"`
	Scopes          []string `json:"scopes"`
	UseHashid       bool     `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate applies the request-shape checks: syntactic field rules plus
// password confirmation equality. Lifecycle rules (duplicates) are the
// store's concern.
func (e RegisterUserMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Length(3, 100)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&e.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password)),
		),
	)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration input")
	}

	return nil
}

type RegisterUserHandler struct {
	repo RepositoryManager
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Scopes = event.Scopes
		user.Username = getUsername(event.Username, event.Email)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

type UpdateUserMessage struct {
	Username  string   `json:"username"`
	FirstName *string  `json:"first_name"`
	LastName  *string  `json:"last_name"`
	Email     *string  `json:"email"`
	Password  *string  `json:"password"`
	Scopes    []string `json:"scopes"`
}

func (e UpdateUserMessage) Type() string { return "user.update" }

func (e UpdateUserMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Required),
	)
	if err == nil && e.Email != nil {
		err = validation.Validate(*e.Email, validation.Required, is.Email)
	}
	if err == nil && e.Password != nil {
		err = validation.Validate(*e.Password, validation.Required, validation.Length(8, 100))
	}

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid profile update input")
	}

	return nil
}

type UpdateUserHandler struct {
	repo RepositoryManager
}

func NewUpdateUserHandler(repo RepositoryManager) *UpdateUserHandler {
	return &UpdateUserHandler{repo: repo}
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	var user *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		update := ProfileUpdate{
			FirstName: event.FirstName,
			LastName:  event.LastName,
			Email:     event.Email,
			Password:  event.Password,
			Scopes:    event.Scopes,
		}

		var err error
		user, err = h.repo.Users().UpdateProfileTx(ctx, tx, event.Username, update)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "profile update transaction failed")
	}

	return user, nil
}

type DeactivateUserMessage struct {
	Username string `json:"username"`
}

func (e DeactivateUserMessage) Type() string { return "user.deactivate" }

func (e DeactivateUserMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid deactivation input")
	}
	return nil
}

type DeactivateUserHandler struct {
	repo RepositoryManager
}

func NewDeactivateUserHandler(repo RepositoryManager) *DeactivateUserHandler {
	return &DeactivateUserHandler{repo: repo}
}

func (h *DeactivateUserHandler) Execute(ctx context.Context, event DeactivateUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	var user *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().DeactivateTx(ctx, tx, event.Username)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user deactivation transaction failed")
	}

	return user, nil
}

// ValidateStringEquals builds an ozzo rule asserting the value equals str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
