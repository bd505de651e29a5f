package services

import (
	"testing"

	"chatd/auth"
	"chatd/domain"
	"chatd/errors"
	"chatd/mocks"
	"chatd/runtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuthService_CheckLogin(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockIUserDirectory(ctrl)
	service := NewAuthService(directory, runtime.NewSessionRegistry())

	t.Run("available login", func(t *testing.T) {
		directory.EXPECT().IsLoginAvailable("alice").Return(true, nil)
		available, err := service.CheckLogin("alice")
		req.NoError(err)
		req.True(available)
	})

	t.Run("taken login", func(t *testing.T) {
		directory.EXPECT().IsLoginAvailable("bob").Return(false, nil)
		available, err := service.CheckLogin("bob")
		req.NoError(err)
		req.False(available)
	})

	t.Run("invalid charset never hits the directory", func(t *testing.T) {
		available, err := service.CheckLogin("no spaces!")
		req.NoError(err)
		req.False(available)
	})
}

func TestAuthService_SignUpStoresDigestNotPassword(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockIUserDirectory(ctrl)
	service := NewAuthService(directory, runtime.NewSessionRegistry())

	var storedDigest string
	directory.EXPECT().
		Create("alice", gomock.Any(), "Alice").
		DoAndReturn(func(login, digest, displayName string) (domain.UserRecord, error) {
			storedDigest = digest
			return domain.UserRecord{Login: login, PasswordDigest: digest, DisplayName: displayName}, nil
		})

	req.NoError(service.SignUp("alice", "s3cret", "Alice"))
	req.NotEqual("s3cret", storedDigest)
	req.NotContains(storedDigest, "s3cret")

	match, err := auth.ComparePassword("s3cret", storedDigest)
	req.NoError(err)
	req.True(match)
}

func TestAuthService_SignUpValidationShortCircuits(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	// No expectations: an invalid request must never reach the directory.
	directory := mocks.NewMockIUserDirectory(ctrl)
	service := NewAuthService(directory, runtime.NewSessionRegistry())

	req.ErrorIs(service.SignUp("", "pwd", "Name"), errors.ErrEmptyCredentials)
	req.ErrorIs(service.SignUp("alice", "", "Name"), errors.ErrEmptyCredentials)
	req.ErrorIs(service.SignUp("has space", "pwd", "Name"), errors.ErrInvalidLogin)
}

func TestAuthService_SignIn(t *testing.T) {
	digest, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	record := domain.UserRecord{Login: "alice", PasswordDigest: digest, DisplayName: "Alice"}

	t.Run("success claims the session", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		directory := mocks.NewMockIUserDirectory(ctrl)
		registry := runtime.NewSessionRegistry()
		service := NewAuthService(directory, registry)

		directory.EXPECT().Get("alice").Return(record, nil)
		directory.EXPECT().SetLoggedIn("alice", true).Return(nil)

		got, err := service.SignIn("alice", "s3cret", uuid.New(), nil)
		req.NoError(err)
		req.Equal("Alice", got.DisplayName)
		req.True(registry.IsActive("alice"))
	})

	t.Run("wrong password", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		directory := mocks.NewMockIUserDirectory(ctrl)
		registry := runtime.NewSessionRegistry()
		service := NewAuthService(directory, registry)

		directory.EXPECT().Get("alice").Return(record, nil)

		_, err := service.SignIn("alice", "wrong", uuid.New(), nil)
		req.ErrorIs(err, errors.ErrInvalidCredentials)
		req.False(registry.IsActive("alice"))
	})

	t.Run("unknown login reports the same error as a bad password", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		directory := mocks.NewMockIUserDirectory(ctrl)
		service := NewAuthService(directory, runtime.NewSessionRegistry())

		directory.EXPECT().Get("ghost").Return(domain.UserRecord{}, errors.ErrUnknownLogin)

		_, err := service.SignIn("ghost", "whatever", uuid.New(), nil)
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("second connection is rejected and the first keeps its session", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		directory := mocks.NewMockIUserDirectory(ctrl)
		registry := runtime.NewSessionRegistry()
		service := NewAuthService(directory, registry)

		directory.EXPECT().Get("alice").Return(record, nil).Times(2)
		directory.EXPECT().SetLoggedIn("alice", true).Return(nil)

		first := uuid.New()
		_, err := service.SignIn("alice", "s3cret", first, nil)
		req.NoError(err)

		_, err = service.SignIn("alice", "s3cret", uuid.New(), nil)
		req.ErrorIs(err, errors.ErrAlreadyActive)
		req.True(registry.IsActive("alice"))
	})

	t.Run("flag write failure rolls the session back", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		directory := mocks.NewMockIUserDirectory(ctrl)
		registry := runtime.NewSessionRegistry()
		service := NewAuthService(directory, registry)

		directory.EXPECT().Get("alice").Return(record, nil)
		directory.EXPECT().SetLoggedIn("alice", true).Return(errors.ErrUnknownLogin)

		_, err := service.SignIn("alice", "s3cret", uuid.New(), nil)
		req.Error(err)
		req.False(registry.IsActive("alice"))
	})
}

func TestAuthService_SignOut(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockIUserDirectory(ctrl)
	registry := runtime.NewSessionRegistry()
	service := NewAuthService(directory, registry)

	connID := uuid.New()
	_, err := registry.Acquire("alice", connID, nil)
	req.NoError(err)

	directory.EXPECT().SetLoggedIn("alice", false).Return(nil)
	req.NoError(service.SignOut("alice", connID))
	req.False(registry.IsActive("alice"))

	// An account removed while signed in has nothing left to flag.
	directory.EXPECT().SetLoggedIn("gone", false).Return(errors.ErrUnknownLogin)
	req.NoError(service.SignOut("gone", uuid.New()))
}

func TestAuthService_RemoveAccount(t *testing.T) {
	t.Run("active owner removes own account", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		directory := mocks.NewMockIUserDirectory(ctrl)
		registry := runtime.NewSessionRegistry()
		service := NewAuthService(directory, registry)

		connID := uuid.New()
		_, err := registry.Acquire("alice", connID, nil)
		req.NoError(err)

		directory.EXPECT().Get("alice").Return(domain.UserRecord{Login: "alice", LoggedIn: true}, nil)
		directory.EXPECT().Remove("alice").Return(nil)

		req.NoError(service.RemoveAccount("alice", connID))
		req.False(registry.IsActive("alice"))
	})

	t.Run("not signed in", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		directory := mocks.NewMockIUserDirectory(ctrl)
		service := NewAuthService(directory, runtime.NewSessionRegistry())

		directory.EXPECT().Get("alice").Return(domain.UserRecord{Login: "alice"}, nil)

		req.ErrorIs(service.RemoveAccount("alice", uuid.New()), errors.ErrNotLoggedIn)
	})
}

func TestAuthService_RemoveOffline(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockIUserDirectory(ctrl)
	registry := runtime.NewSessionRegistry()
	service := NewAuthService(directory, registry)

	_, err := registry.Acquire("alice", uuid.New(), nil)
	req.NoError(err)
	req.ErrorIs(service.RemoveOffline("alice"), errors.ErrSessionStillActive)

	directory.EXPECT().Remove("bob").Return(nil)
	req.NoError(service.RemoveOffline("bob"))
}
