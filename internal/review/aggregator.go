// Package review owns the review lifecycle and the derived average rating
// of each movie.
package review

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-reviews/internal/metrics"
)

// RatingSource lists the ratings currently linked to a movie.
type RatingSource interface {
	RatingsForMovie(ctx context.Context, movieID string) ([]float64, error)
}

// RatingSink stores derived averages.
type RatingSink interface {
	SetAverageRating(ctx context.Context, id string, average float64) error
	ListIDs(ctx context.Context) ([]string, error)
}

// Aggregator keeps movies.average_rating equal to the mean of its reviews.
type Aggregator struct {
	reviews RatingSource
	movies  RatingSink
	logger  zerolog.Logger
}

// NewAggregator wires an Aggregator.
func NewAggregator(reviews RatingSource, movies RatingSink, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		reviews: reviews,
		movies:  movies,
		logger:  logger.With().Str("component", "aggregator").Logger(),
	}
}

// Recompute re-derives the movie's average from its reviews and stores it.
func (a *Aggregator) Recompute(ctx context.Context, movieID string) (float64, error) {
	return a.recompute(ctx, movieID, "write")
}

func (a *Aggregator) recompute(ctx context.Context, movieID, trigger string) (float64, error) {
	ratings, err := a.reviews.RatingsForMovie(ctx, movieID)
	if err != nil {
		return 0, fmt.Errorf("load ratings for %s: %w", movieID, err)
	}
	average := Mean(ratings)
	if err := a.movies.SetAverageRating(ctx, movieID, average); err != nil {
		return 0, fmt.Errorf("store average for %s: %w", movieID, err)
	}
	metrics.RatingRecomputes.WithLabelValues(trigger).Inc()
	return average, nil
}

// ReconcileAll recomputes every movie and returns how many were processed.
func (a *Aggregator) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := a.movies.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list movies: %w", err)
	}
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := a.recompute(ctx, id, "reconcile"); err != nil {
			return done, err
		}
		done++
	}
	a.logger.Info().Int("movies", done).Msg("reconciled average ratings")
	return done, nil
}

// Mean returns the arithmetic mean of ratings, or 0 when empty.
func Mean(ratings []float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return sum / float64(len(ratings))
}
