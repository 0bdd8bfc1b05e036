// Package account implements registration, login and profile management.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-reviews/internal/auth"
	"github.com/Clark-Hu/movie-reviews/internal/domain"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
	"github.com/Clark-Hu/movie-reviews/internal/validation"
)

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, params repository.UserCreateParams) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateProfile(ctx context.Context, id string, params repository.UserUpdateParams) (domain.User, error)
}

// WatchlistReader lists the movie ids on a user's watchlist.
type WatchlistReader interface {
	IDs(ctx context.Context, userID string) ([]string, error)
}

// Tokens issues bearer tokens for a user id.
type Tokens interface {
	Issue(userID string) (string, error)
}

// Service implements account operations.
type Service struct {
	users     UserStore
	watchlist WatchlistReader
	tokens    Tokens
	logger    zerolog.Logger
}

// NewService wires a Service.
func NewService(users UserStore, watchlist WatchlistReader, tokens Tokens, logger zerolog.Logger) *Service {
	return &Service{
		users:     users,
		watchlist: watchlist,
		tokens:    tokens,
		logger:    logger.With().Str("component", "account").Logger(),
	}
}

// RegisterParams is the input of Register.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, params RegisterParams) (string, error) {
	username := strings.TrimSpace(params.Username)
	email := normalizeEmail(params.Email)
	switch {
	case username == "":
		return "", domain.Errorf(domain.ErrValidation, "username is required")
	case len(params.Password) < auth.MinPasswordLength:
		return "", domain.Errorf(domain.ErrValidation, "password must be at least %d characters", auth.MinPasswordLength)
	case len(params.Password) > auth.MaxPasswordBytes:
		return "", domain.Errorf(domain.ErrValidation, "password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	if err := validation.Email(email); err != nil {
		return "", err
	}

	if err := s.ensureFree(ctx, "", &username, &email); err != nil {
		return "", err
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return "", err
	}
	user, err := s.users.Create(ctx, repository.UserCreateParams{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("registered user")
	return s.tokens.Issue(user.ID)
}

// Login verifies credentials and returns a token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.Errorf(domain.ErrUnauthenticated, "invalid credentials")
	}
	if err != nil {
		return "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", domain.Errorf(domain.ErrUnauthenticated, "invalid credentials")
	}
	return s.tokens.Issue(user.ID)
}

// Current returns the authenticated user with their watchlist ids.
func (s *Service) Current(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.Errorf(domain.ErrUnauthenticated, "account no longer exists")
	}
	if err != nil {
		return domain.User{}, err
	}
	ids, err := s.watchlist.IDs(ctx, user.ID)
	if err != nil {
		return domain.User{}, err
	}
	user.Watchlist = ids
	return user, nil
}

// ByUsername returns a public profile.
func (s *Service) ByUsername(ctx context.Context, username string) (domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	ids, err := s.watchlist.IDs(ctx, user.ID)
	if err != nil {
		return domain.User{}, err
	}
	user.Watchlist = ids
	return user, nil
}

// ProfileParams holds optional profile fields.
type ProfileParams struct {
	Username       *string
	Email          *string
	Bio            *string
	ProfilePicture *string
}

// UpdateProfile changes the user's own profile, keeping username and email unique.
func (s *Service) UpdateProfile(ctx context.Context, userID string, params ProfileParams) (domain.User, error) {
	update := repository.UserUpdateParams{Bio: params.Bio, ProfilePicture: params.ProfilePicture}
	if params.Username != nil {
		username := strings.TrimSpace(*params.Username)
		if username == "" {
			return domain.User{}, domain.Errorf(domain.ErrValidation, "username cannot be empty")
		}
		update.Username = &username
	}
	if params.Email != nil {
		email := normalizeEmail(*params.Email)
		if err := validation.Email(email); err != nil {
			return domain.User{}, err
		}
		update.Email = &email
	}
	if err := s.ensureFree(ctx, userID, update.Username, update.Email); err != nil {
		return domain.User{}, err
	}
	if _, err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		return domain.User{}, err
	}
	return s.Current(ctx, userID)
}

// ensureFree reports Conflict when username or email belong to another user.
// The unique indexes still catch races between the check and the write.
func (s *Service) ensureFree(ctx context.Context, selfID string, username, email *string) error {
	if username != nil {
		existing, err := s.users.GetByUsername(ctx, *username)
		if err == nil && existing.ID != selfID {
			return domain.Errorf(domain.ErrConflict, "username already taken")
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	if email != nil {
		existing, err := s.users.GetByEmail(ctx, *email)
		if err == nil && existing.ID != selfID {
			return domain.Errorf(domain.ErrConflict, "email already in use")
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
