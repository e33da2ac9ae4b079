// Package account registers users and checks their credentials.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"musicshare/core/apperr"
	"musicshare/core/auth"
	applog "musicshare/logger"
	"musicshare/model"
	"musicshare/repository"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown user and
// for a wrong password alike.
var ErrInvalidCredentials = fmt.Errorf("%w: incorrect username or password", apperr.ErrUnauthorized)

const maxUsernameLen = 100

// Service 用户账户服务
type Service struct {
	users     repository.UserRepository
	playlists repository.PlaylistRepository
	cost      int

	dummyOnce sync.Once
	dummySalt []byte
	dummyHash string
}

// NewService creates the account service. cost is the bcrypt cost factor.
func NewService(users repository.UserRepository, playlists repository.PlaylistRepository, cost int) *Service {
	return &Service{users: users, playlists: playlists, cost: cost}
}

// CreateUser registers a user with ordinary rights.
func (s *Service) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	return s.create(ctx, username, password, model.RightsUser)
}

// SeedAdmin registers a user with admin rights. It is not reachable over HTTP.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) (*model.User, error) {
	return s.create(ctx, username, password, model.RightsAdmin)
}

func (s *Service) create(ctx context.Context, username, password string, rights model.Rights) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLen {
		return nil, fmt.Errorf("%w: username must be 1-%d characters", apperr.ErrInvalidFormat, maxUsernameLen)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", apperr.ErrInvalidFormat)
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password, salt, s.cost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		Salt:         auth.EncodeSalt(salt),
		Rights:       rights,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	applog.Info("User registered",
		applog.String("username", user.Username),
		applog.Int64("userID", user.ID),
		applog.String("rights", string(user.Rights)))
	return user, nil
}

// Authenticate returns the user whose credentials match. Unknown users and
// wrong passwords both yield ErrInvalidCredentials after a bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.compareDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	salt, err := auth.DecodeSalt(user.Salt)
	if err != nil {
		applog.Error("Stored salt is corrupt", applog.Int64("userID", user.ID), applog.ErrorField(err))
		s.compareDummy(password)
		return nil, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(password, salt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// compareDummy spends the same bcrypt work as a real verification.
func (s *Service) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		salt, err := auth.GenerateSalt()
		if err != nil {
			return
		}
		hash, err := auth.HashPassword("dummy-password", salt, s.cost)
		if err != nil {
			return
		}
		s.dummySalt, s.dummyHash = salt, hash
	})
	if s.dummyHash != "" {
		auth.VerifyPassword(password, s.dummySalt, s.dummyHash)
	}
}

// Account returns the user and the playlists they created.
func (s *Service) Account(ctx context.Context, userID int64) (*model.User, []*model.Playlist, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	playlists, err := s.playlists.ListByCreator(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, playlists, nil
}
