package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
	"github.com/Clark-Hu/movie-reviews/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = domain.ErrNotFound

// ErrConflict indicates a uniqueness constraint rejected the write.
var ErrConflict = domain.ErrConflict

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Movies    *MoviesRepository
	Reviews   *ReviewsRepository
	Users     *UsersRepository
	Watchlist *WatchlistRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Movies:    &MoviesRepository{pool: pool},
		Reviews:   &ReviewsRepository{pool: pool},
		Users:     &UsersRepository{pool: pool},
		Watchlist: &WatchlistRepository{pool: pool},
	}
}

// translate maps driver errors onto domain error kinds.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Errorf(domain.ErrNotFound, "%s not found", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &domain.Error{Kind: domain.ErrConflict, Message: conflictMessage(pgErr.ConstraintName, what)}
		case pgForeignKeyViolation:
			return &domain.Error{Kind: domain.ErrNotFound, Message: "referenced record not found"}
		}
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func conflictMessage(constraint, what string) string {
	switch constraint {
	case "users_username_key":
		return "username already taken"
	case "users_email_key":
		return "email already in use"
	case "reviews_user_movie_key":
		return "you have already reviewed this movie"
	case "movies_tmdb_id_key":
		return "movie already imported"
	}
	return what + " already exists"
}
