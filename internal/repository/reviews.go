package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
)

// ReviewsRepository provides helpers for movie reviews.
type ReviewsRepository struct {
	pool *pgxpool.Pool
}

// ReviewCreateParams captures the payload required to create a review.
type ReviewCreateParams struct {
	UserID  string
	MovieID string
	Text    string
	Rating  float64
}

const reviewColumns = `
    r.id,
    r.user_id,
    r.movie_id,
    r.text,
    r.rating,
    r.created_at,
    r.updated_at,
    u.username,
    u.profile_picture,
    m.title,
    m.poster
`

const reviewJoins = `
    JOIN users u ON u.id = r.user_id
    JOIN movies m ON m.id = r.movie_id
`

// Create inserts a review. A second review by the same user for the same
// movie fails with ErrConflict.
func (r *ReviewsRepository) Create(ctx context.Context, params ReviewCreateParams) (domain.Review, error) {
	query := fmt.Sprintf(`
        WITH r AS (
            INSERT INTO reviews (id, user_id, movie_id, text, rating)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING *
        )
        SELECT %s FROM r %s
    `, reviewColumns, reviewJoins)

	review, err := scanReview(r.pool.QueryRow(ctx, query, uuid.NewString(), params.UserID, params.MovieID, params.Text, params.Rating))
	if err != nil {
		return domain.Review{}, translate(err, "review")
	}
	return review, nil
}

// GetByID fetches a review by its identifier.
func (r *ReviewsRepository) GetByID(ctx context.Context, id string) (domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews r %s WHERE r.id = $1`, reviewColumns, reviewJoins)
	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Review{}, translate(err, "review")
	}
	return review, nil
}

// FindByUserAndMovie returns the user's review of a movie, or ErrNotFound.
func (r *ReviewsRepository) FindByUserAndMovie(ctx context.Context, userID, movieID string) (domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews r %s WHERE r.user_id = $1 AND r.movie_id = $2`, reviewColumns, reviewJoins)
	review, err := scanReview(r.pool.QueryRow(ctx, query, userID, movieID))
	if err != nil {
		return domain.Review{}, translate(err, "review")
	}
	return review, nil
}

// Update overwrites the text and rating of a review.
func (r *ReviewsRepository) Update(ctx context.Context, id, text string, rating float64) (domain.Review, error) {
	query := fmt.Sprintf(`
        WITH r AS (
            UPDATE reviews SET text = $2, rating = $3, updated_at = now()
            WHERE id = $1
            RETURNING *
        )
        SELECT %s FROM r %s
    `, reviewColumns, reviewJoins)

	review, err := scanReview(r.pool.QueryRow(ctx, query, id, text, rating))
	if err != nil {
		return domain.Review{}, translate(err, "review")
	}
	return review, nil
}

// Delete removes a review.
func (r *ReviewsRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrNotFound, "review not found")
	}
	return nil
}

// DeleteByMovie removes every review of a movie and reports how many.
func (r *ReviewsRepository) DeleteByMovie(ctx context.Context, movieID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE movie_id = $1`, movieID)
	if err != nil {
		return 0, fmt.Errorf("delete reviews by movie: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RatingsForMovie returns the rating of every review currently linked to movieID.
func (r *ReviewsRepository) RatingsForMovie(ctx context.Context, movieID string) ([]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT rating FROM reviews WHERE movie_id = $1`, movieID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[float64])
}

// ListByMovie returns a movie's reviews, newest first.
func (r *ReviewsRepository) ListByMovie(ctx context.Context, movieID string) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews r %s WHERE r.movie_id = $1 ORDER BY r.created_at DESC, r.id`, reviewColumns, reviewJoins)
	rows, err := r.pool.Query(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	return collectReviews(rows)
}

// ListByUser returns a user's reviews, newest first.
func (r *ReviewsRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews r %s WHERE r.user_id = $1 ORDER BY r.created_at DESC, r.id`, reviewColumns, reviewJoins)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectReviews(rows)
}

// ListRecent returns the most recent reviews across all movies.
func (r *ReviewsRepository) ListRecent(ctx context.Context, limit int) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews r %s ORDER BY r.created_at DESC, r.id LIMIT $1`, reviewColumns, reviewJoins)
	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return collectReviews(rows)
}

func collectReviews(rows pgx.Rows) ([]domain.Review, error) {
	defer rows.Close()
	items := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.MovieID,
		&review.Text,
		&review.Rating,
		&review.CreatedAt,
		&review.UpdatedAt,
		&review.Username,
		&review.ProfilePicture,
		&review.MovieTitle,
		&review.MoviePoster,
	)
	if err != nil {
		return domain.Review{}, err
	}
	return review, nil
}
