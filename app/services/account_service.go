package services

import (
	"context"
	"errors"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/pkg/pocketbase"
	"github.com/huertohogar/huerto/pkg/validate"
)

// Chilean mobile prefix added to the 8 digits users type.
const phonePrefix = "+569"

// ErrInvalidCredentials is returned when the service rejects a login.
var ErrInvalidCredentials = errors.New("correo o contraseña incorrectos")

// AccountGateway is the remote user store.
type AccountGateway interface {
	Login(ctx context.Context, email, password string) (models.AuthResult, error)
	Register(ctx context.Context, r pocketbase.Registration) (models.User, error)
	UpdateUser(ctx context.Context, id string, fields map[string]interface{}) (models.User, error)
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterInput struct {
	Name            string `json:"name"            validate:"required"`
	Email           string `json:"email"           validate:"required,email"`
	Address         string `json:"address"         validate:"required"`
	Phone           string `json:"phone"           validate:"required,digits=8"`
	Password        string `json:"password"        validate:"required,between=6,8,symbol"`
	PasswordConfirm string `json:"passwordConfirm" validate:"same=password"`
}

type ProfileInput struct {
	Address         string `json:"address"         validate:"required"`
	Phone           string `json:"phone"           validate:"required,digits=8"`
	Password        string `json:"password"        validate:"nullable,between=6,8,symbol"`
	PasswordConfirm string `json:"passwordConfirm" validate:"same=password"`
}

// AccountService handles login, registration and profile edits.
type AccountService struct {
	remote AccountGateway
}

func NewAccountService(remote AccountGateway) *AccountService {
	return &AccountService{remote: remote}
}

// Login authenticates against the remote user store.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (models.AuthResult, error) {
	if errs := validate.Struct(in); errs != nil {
		return models.AuthResult{}, errs
	}
	res, err := s.remote.Login(ctx, in.Email, in.Password)
	if err != nil {
		var he *pocketbase.HTTPError
		if errors.As(err, &he) && he.StatusCode == 400 {
			return models.AuthResult{}, ErrInvalidCredentials
		}
		return models.AuthResult{}, err
	}
	return res, nil
}

// Register creates an account. The phone is stored with the mobile prefix.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if errs := validate.Struct(in); errs != nil {
		return models.User{}, errs
	}
	return s.remote.Register(ctx, pocketbase.Registration{
		Email:           in.Email,
		Password:        in.Password,
		PasswordConfirm: in.PasswordConfirm,
		Name:            in.Name,
		Address:         in.Address,
		Phone:           phonePrefix + in.Phone,
	})
}

// UpdateProfile changes address and phone, and the password when one is
// given.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (models.User, error) {
	if errs := validate.Struct(in); errs != nil {
		return models.User{}, errs
	}
	fields := map[string]interface{}{
		"address": in.Address,
		"phone":   phonePrefix + in.Phone,
	}
	if in.Password != "" {
		fields["password"] = in.Password
		fields["passwordConfirm"] = in.PasswordConfirm
	}
	return s.remote.UpdateUser(ctx, userID, fields)
}
