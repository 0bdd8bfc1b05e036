package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
)

type memUsers struct {
	seq   int
	users map[string]domain.User
}

func (m *memUsers) Create(ctx context.Context, p repository.UserCreateParams) (domain.User, error) {
	m.seq++
	u := domain.User{ID: fmt.Sprintf("u-%d", m.seq), Username: p.Username, Email: p.Email, PasswordHash: p.PasswordHash}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.Errorf(domain.ErrNotFound, "user not found")
	}
	return u, nil
}

func (m *memUsers) find(match func(domain.User) bool) (domain.User, error) {
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.Errorf(domain.ErrNotFound, "user not found")
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Username == username })
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Email == email })
}

func (m *memUsers) UpdateProfile(ctx context.Context, id string, p repository.UserUpdateParams) (domain.User, error) {
	u := m.users[id]
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	m.users[id] = u
	return u, nil
}

type staticWatchlist []string

func (w staticWatchlist) IDs(ctx context.Context, userID string) ([]string, error) {
	return w, nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(userID string) (string, error) { return "token-" + userID, nil }

func newService() (*Service, *memUsers) {
	users := &memUsers{users: map[string]domain.User{}}
	return NewService(users, staticWatchlist{"m1"}, fakeTokens{}, zerolog.Nop()), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users := newService()
	ctx := context.Background()

	token, err := svc.Register(ctx, RegisterParams{Username: "alice", Email: " Alice@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token != "token-u-1" {
		t.Fatalf("token = %q", token)
	}
	stored := users.users["u-1"]
	if stored.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", stored.Email)
	}
	if stored.PasswordHash == "secret1" {
		t.Fatalf("password stored in plaintext")
	}

	if token, err := svc.Login(ctx, "ALICE@example.com", "secret1"); err != nil || token != "token-u-1" {
		t.Fatalf("Login = %q, %v", token, err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("unknown email err = %v", err)
	}
}

func TestRegisterValidationAndConflicts(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterParams{Username: "bob", Email: "bob@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name   string
		params RegisterParams
		want   error
	}{
		{"missing username", RegisterParams{Email: "x@example.com", Password: "secret1"}, domain.ErrValidation},
		{"bad email", RegisterParams{Username: "x", Email: "nope", Password: "secret1"}, domain.ErrValidation},
		{"short password", RegisterParams{Username: "x", Email: "x@example.com", Password: "123"}, domain.ErrValidation},
		{"multibyte password over bcrypt limit", RegisterParams{Username: "x", Email: "x@example.com", Password: strings.Repeat("é", 40)}, domain.ErrValidation},
		{"display-name email", RegisterParams{Username: "x", Email: "X <x@example.com>", Password: "secret1"}, domain.ErrValidation},
		{"taken username", RegisterParams{Username: "bob", Email: "x@example.com", Password: "secret1"}, domain.ErrConflict},
		{"taken email", RegisterParams{Username: "x", Email: "BOB@example.com", Password: "secret1"}, domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.params); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCurrentAndUpdateProfile(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, _ = svc.Register(ctx, RegisterParams{Username: "carol", Email: "carol@example.com", Password: "secret1"})
	_, _ = svc.Register(ctx, RegisterParams{Username: "dan", Email: "dan@example.com", Password: "secret1"})

	current, err := svc.Current(ctx, "u-1")
	if err != nil || current.Username != "carol" || len(current.Watchlist) != 1 {
		t.Fatalf("Current = %+v, %v", current, err)
	}

	badEmail := "not-an-email"
	if _, err := svc.UpdateProfile(ctx, "u-1", ProfileParams{Email: &badEmail}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad email err = %v", err)
	}

	taken := "dan"
	if _, err := svc.UpdateProfile(ctx, "u-1", ProfileParams{Username: &taken}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("taken username err = %v", err)
	}

	same := "carol"
	bio := "hello"
	updated, err := svc.UpdateProfile(ctx, "u-1", ProfileParams{Username: &same, Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Bio != "hello" || updated.Username != "carol" {
		t.Fatalf("updated = %+v", updated)
	}

	if _, err := svc.Current(ctx, "ghost"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("ghost err = %v", err)
	}
	if _, err := svc.ByUsername(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ByUsername err = %v", err)
	}
}
