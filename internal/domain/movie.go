package domain

import "time"

// Movie represents the canonical movie entity in the database/service.
type Movie struct {
	ID          string
	TMDBID      *int64
	Title       string
	ReleaseYear int
	Director    string
	Cast        []string
	Genres      []string
	Plot        string
	Poster      string
	Backdrop    string
	// AverageRating is maintained by the rating aggregator only.
	AverageRating float64
	// ReviewIDs is derived from the reviews table at read time.
	ReviewIDs []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
