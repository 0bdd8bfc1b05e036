// Package watchlist manages each user's ordered set of movies to watch.
package watchlist

import (
	"context"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
)

// Store persists watchlist entries in insertion order.
type Store interface {
	Add(ctx context.Context, userID, movieID string) (bool, error)
	Remove(ctx context.Context, userID, movieID string) error
	MovieIDs(ctx context.Context, userID string) ([]string, error)
	Movies(ctx context.Context, userID string) ([]domain.Movie, error)
}

// MovieLookup checks that a movie exists.
type MovieLookup interface {
	GetByID(ctx context.Context, id string) (domain.Movie, error)
}

// UserLookup resolves usernames.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

// Manager implements watchlist add, remove and list.
type Manager struct {
	entries Store
	movies  MovieLookup
	users   UserLookup
}

// NewManager wires a Manager.
func NewManager(entries Store, movies MovieLookup, users UserLookup) *Manager {
	return &Manager{entries: entries, movies: movies, users: users}
}

// Add appends movieID to the user's watchlist and returns the updated list.
func (m *Manager) Add(ctx context.Context, userID, movieID string) ([]string, error) {
	if _, err := m.movies.GetByID(ctx, movieID); err != nil {
		return nil, err
	}
	added, err := m.entries.Add(ctx, userID, movieID)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, domain.Errorf(domain.ErrConflict, "movie already in watchlist")
	}
	return m.entries.MovieIDs(ctx, userID)
}

// Remove drops movieID from the user's watchlist. Absent entries are ignored.
func (m *Manager) Remove(ctx context.Context, userID, movieID string) ([]string, error) {
	if err := m.entries.Remove(ctx, userID, movieID); err != nil {
		return nil, err
	}
	return m.entries.MovieIDs(ctx, userID)
}

// IDs returns the movie ids on a user's watchlist.
func (m *Manager) IDs(ctx context.Context, userID string) ([]string, error) {
	return m.entries.MovieIDs(ctx, userID)
}

// List returns the full movies on username's watchlist in insertion order.
func (m *Manager) List(ctx context.Context, username string) ([]domain.Movie, error) {
	user, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return m.entries.Movies(ctx, user.ID)
}
