package domain

import (
	"math"
	"time"
)

// Rating bounds accepted for a review.
const (
	MinRating = 0.0
	MaxRating = 5.0
)

// Review links one user to one movie with a rating and text.
type Review struct {
	ID        string
	UserID    string
	MovieID   string
	Text      string
	Rating    float64
	CreatedAt time.Time
	UpdatedAt time.Time

	// Display fields joined from users and movies.
	Username       string
	ProfilePicture string
	MovieTitle     string
	MoviePoster    string
}

// ValidateRating rejects ratings outside [MinRating, MaxRating].
func ValidateRating(rating float64) error {
	if math.IsNaN(rating) || rating < MinRating || rating > MaxRating {
		return Errorf(ErrValidation, "rating must be between %g and %g", MinRating, MaxRating)
	}
	return nil
}
