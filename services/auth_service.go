package services

import (
	stderrors "errors"
	"fmt"

	"chatd/auth"
	"chatd/domain"
	"chatd/errors"
	"chatd/repositories"
	"chatd/runtime"

	"github.com/google/uuid"
)

type IAuthService interface {
	CheckLogin(login string) (bool, error)
	SignUp(login, password, displayName string) error
	SignIn(login, password string, connID uuid.UUID, close func()) (domain.UserRecord, error)
	SignOut(login string, connID uuid.UUID) error
	RemoveAccount(login string, connID uuid.UUID) error
	RemoveOffline(login string) error
}

// AuthService owns the sign-up/sign-in/removal rules on top of the
// directory and the session registry. The registry's Acquire is the
// single gate that decides a sign-in race.
type AuthService struct {
	directory repositories.IUserDirectory
	registry  *runtime.SessionRegistry
}

func NewAuthService(directory repositories.IUserDirectory, registry *runtime.SessionRegistry) IAuthService {
	return &AuthService{directory: directory, registry: registry}
}

func (s *AuthService) CheckLogin(login string) (bool, error) {
	if !auth.IsValidLogin(login) {
		return false, nil
	}
	return s.directory.IsLoginAvailable(login)
}

func (s *AuthService) SignUp(login, password, displayName string) error {
	request := auth.SignUpRequest{
		Login:       login,
		Password:    password,
		DisplayName: displayName,
	}
	// Business rules are checked before any expensive hashing.
	if err := auth.ValidateSignUp(request); err != nil {
		return err
	}

	digest, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing failed: %w", err)
	}

	_, err = s.directory.Create(login, digest, displayName)
	return err
}

// SignIn authenticates against the directory, then claims the login's one
// session slot. A second live connection gets ErrAlreadyActive and the
// first keeps its session.
func (s *AuthService) SignIn(login, password string, connID uuid.UUID, close func()) (domain.UserRecord, error) {
	record, err := s.directory.Get(login)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return domain.UserRecord{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, record.PasswordDigest)
	if err != nil || !match {
		return domain.UserRecord{}, errors.ErrInvalidCredentials
	}

	if _, err := s.registry.Acquire(login, connID, close); err != nil {
		return domain.UserRecord{}, err
	}

	if err := s.directory.SetLoggedIn(login, true); err != nil {
		s.registry.Release(login, connID)
		return domain.UserRecord{}, err
	}
	return record, nil
}

func (s *AuthService) SignOut(login string, connID uuid.UUID) error {
	s.registry.Release(login, connID)

	err := s.directory.SetLoggedIn(login, false)
	if stderrors.Is(err, errors.ErrUnknownLogin) {
		// The account was removed while signed in; nothing left to flag.
		return nil
	}
	return err
}

// RemoveAccount deletes the caller's own account. Holding the session is
// what satisfies the active-owner precondition, so the session is
// released first and the record deleted after.
func (s *AuthService) RemoveAccount(login string, connID uuid.UUID) error {
	record, err := s.directory.Get(login)
	if err != nil {
		return err
	}
	if !record.LoggedIn && !s.registry.IsActive(login) {
		return errors.ErrNotLoggedIn
	}

	s.registry.Release(login, connID)
	return s.directory.Remove(login)
}

// RemoveOffline deletes an account administratively. The account must not
// be signed in anywhere; kick it first.
func (s *AuthService) RemoveOffline(login string) error {
	if s.registry.IsActive(login) {
		return errors.ErrSessionStillActive
	}
	return s.directory.Remove(login)
}
