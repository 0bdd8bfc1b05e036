package review

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
)

// Store is the review persistence used by the Controller.
type Store interface {
	Create(ctx context.Context, params repository.ReviewCreateParams) (domain.Review, error)
	GetByID(ctx context.Context, id string) (domain.Review, error)
	FindByUserAndMovie(ctx context.Context, userID, movieID string) (domain.Review, error)
	Update(ctx context.Context, id, text string, rating float64) (domain.Review, error)
	Delete(ctx context.Context, id string) error
	ListByMovie(ctx context.Context, movieID string) ([]domain.Review, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Review, error)
}

// MovieLookup checks that a movie exists.
type MovieLookup interface {
	GetByID(ctx context.Context, id string) (domain.Movie, error)
}

// UserLookup resolves usernames.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}

// Recomputer refreshes a movie's average rating.
type Recomputer interface {
	Recompute(ctx context.Context, movieID string) (float64, error)
}

// Controller enforces one review per user per movie and owner-only edits.
type Controller struct {
	reviews    Store
	movies     MovieLookup
	users      UserLookup
	aggregator Recomputer
	logger     zerolog.Logger
}

// NewController wires a Controller.
func NewController(reviews Store, movies MovieLookup, users UserLookup, aggregator Recomputer, logger zerolog.Logger) *Controller {
	return &Controller{
		reviews:    reviews,
		movies:     movies,
		users:      users,
		aggregator: aggregator,
		logger:     logger.With().Str("component", "reviews").Logger(),
	}
}

// Create stores userID's review of movieID and refreshes the movie average.
func (c *Controller) Create(ctx context.Context, userID, movieID, text string, rating float64) (domain.Review, error) {
	text, err := validate(text, rating)
	if err != nil {
		return domain.Review{}, err
	}
	if _, err := c.movies.GetByID(ctx, movieID); err != nil {
		return domain.Review{}, err
	}

	_, err = c.reviews.FindByUserAndMovie(ctx, userID, movieID)
	switch {
	case err == nil:
		return domain.Review{}, domain.Errorf(domain.ErrConflict, "you have already reviewed this movie")
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Review{}, err
	}

	created, err := c.reviews.Create(ctx, repository.ReviewCreateParams{
		UserID:  userID,
		MovieID: movieID,
		Text:    text,
		Rating:  rating,
	})
	if err != nil {
		return domain.Review{}, err
	}
	if err := c.recompute(ctx, movieID); err != nil {
		return domain.Review{}, err
	}
	return created, nil
}

// Update overwrites the text and rating of a review owned by userID.
func (c *Controller) Update(ctx context.Context, reviewID, userID, text string, rating float64) (domain.Review, error) {
	text, err := validate(text, rating)
	if err != nil {
		return domain.Review{}, err
	}
	existing, err := c.owned(ctx, reviewID, userID)
	if err != nil {
		return domain.Review{}, err
	}
	updated, err := c.reviews.Update(ctx, reviewID, text, rating)
	if err != nil {
		return domain.Review{}, err
	}
	if err := c.recompute(ctx, existing.MovieID); err != nil {
		return domain.Review{}, err
	}
	return updated, nil
}

// Delete removes a review owned by userID.
func (c *Controller) Delete(ctx context.Context, reviewID, userID string) error {
	existing, err := c.owned(ctx, reviewID, userID)
	if err != nil {
		return err
	}
	if err := c.reviews.Delete(ctx, reviewID); err != nil {
		return err
	}
	return c.recompute(ctx, existing.MovieID)
}

// Get returns a single review.
func (c *Controller) Get(ctx context.Context, id string) (domain.Review, error) {
	return c.reviews.GetByID(ctx, id)
}

// ListForMovie returns a movie's reviews, newest first.
func (c *Controller) ListForMovie(ctx context.Context, movieID string) ([]domain.Review, error) {
	return c.reviews.ListByMovie(ctx, movieID)
}

// ListForUser returns the reviews written by username.
func (c *Controller) ListForUser(ctx context.Context, username string) ([]domain.Review, error) {
	user, err := c.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return c.reviews.ListByUser(ctx, user.ID)
}

// ListRecent returns the latest reviews across the catalog.
func (c *Controller) ListRecent(ctx context.Context, limit int) ([]domain.Review, error) {
	return c.reviews.ListRecent(ctx, limit)
}

func (c *Controller) owned(ctx context.Context, reviewID, userID string) (domain.Review, error) {
	existing, err := c.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if existing.UserID != userID {
		return domain.Review{}, domain.Errorf(domain.ErrForbidden, "you can only modify your own reviews")
	}
	return existing, nil
}

// recompute failures are returned; ReconcileAll repairs any average left stale.
func (c *Controller) recompute(ctx context.Context, movieID string) error {
	if _, err := c.aggregator.Recompute(ctx, movieID); err != nil {
		c.logger.Error().Err(err).Str("movie_id", movieID).Msg("recompute average rating")
		return err
	}
	return nil
}

func validate(text string, rating float64) (string, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.Errorf(domain.ErrValidation, "review text is required")
	}
	return text, nil
}
