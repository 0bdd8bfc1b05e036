package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
)

// WatchlistRepository stores per-user ordered sets of movie references.
type WatchlistRepository struct {
	pool *pgxpool.Pool
}

// Add appends movieID to the user's watchlist. added is false when the entry
// already existed. A missing movie or user yields ErrNotFound.
func (r *WatchlistRepository) Add(ctx context.Context, userID, movieID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
        INSERT INTO watchlist_entries (user_id, movie_id)
        VALUES ($1,$2)
        ON CONFLICT (user_id, movie_id) DO NOTHING
    `, userID, movieID)
	if err != nil {
		return false, translate(err, "watchlist entry")
	}
	return tag.RowsAffected() == 1, nil
}

// Remove deletes an entry; removing an absent entry is not an error.
func (r *WatchlistRepository) Remove(ctx context.Context, userID, movieID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM watchlist_entries WHERE user_id = $1 AND movie_id = $2`, userID, movieID); err != nil {
		return fmt.Errorf("remove watchlist entry: %w", err)
	}
	return nil
}

// MovieIDs returns the user's watchlist in insertion order.
func (r *WatchlistRepository) MovieIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT movie_id FROM watchlist_entries WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Movies returns the full movie records on the user's watchlist in insertion order.
func (r *WatchlistRepository) Movies(ctx context.Context, userID string) ([]domain.Movie, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM watchlist_entries w
        JOIN movies m ON m.id = w.movie_id
        WHERE w.user_id = $1
        ORDER BY w.seq
    `, movieColumns)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectMovies(rows)
}
