package auth

import (
	"fmt"
	"regexp"

	"chatd/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// loginPattern is the only character set accepted for logins. It doubles
// as a wire-safety guarantee: a valid login can never contain a colon.
var loginPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type SignUpRequest struct {
	Login       string `validate:"required,max=32,login_charset"`
	Password    string `validate:"required,max=128"`
	DisplayName string `validate:"required,max=64"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// The closure never returns an error, RegisterValidation only fails on
	// an empty tag name.
	_ = v.RegisterValidation("login_charset", func(fl validator.FieldLevel) bool {
		return loginPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateSignUp maps struct-level failures onto the service error
// taxonomy so handlers never see validator internals.
func ValidateSignUp(req SignUpRequest) error {
	if req.Login == "" || req.Password == "" || req.DisplayName == "" {
		return errors.ErrEmptyCredentials
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidLogin, err)
	}
	return nil
}

// IsValidLogin reports whether a login uses only allowed characters.
func IsValidLogin(login string) bool {
	return login != "" && loginPattern.MatchString(login)
}
