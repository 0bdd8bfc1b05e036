package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
)

// SeedMovie is one entry of a catalog seed file. Ratings are not part of it:
// a seeded movie starts at 0 like any other.
type SeedMovie struct {
	TMDBID      *int64   `json:"tmdbId,omitempty"`
	Title       string   `json:"title"`
	ReleaseYear int      `json:"releaseYear"`
	Director    string   `json:"director"`
	Cast        []string `json:"cast"`
	Genres      []string `json:"genres"`
	Plot        string   `json:"plot"`
	Poster      string   `json:"poster"`
	Backdrop    string   `json:"backdrop"`
}

// SeedResult counts what Seed did.
type SeedResult struct {
	Created int
	Skipped int
}

// ReadSeed decodes a JSON array of seed movies, rejecting unknown fields.
func ReadSeed(r io.Reader) ([]SeedMovie, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var movies []SeedMovie
	if err := dec.Decode(&movies); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return movies, nil
}

// Seed creates every movie that is not already in the catalog. A movie is
// already there when one with the same title and release year exists, or
// when its tmdbId is taken.
func (r *Resolver) Seed(ctx context.Context, movies []SeedMovie) (SeedResult, error) {
	var result SeedResult
	for i, m := range movies {
		exists, err := r.hasMovie(ctx, m.Title, m.ReleaseYear)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}
		_, err = r.Create(ctx, repository.MovieCreateParams{
			TMDBID:      m.TMDBID,
			Title:       m.Title,
			ReleaseYear: m.ReleaseYear,
			Director:    m.Director,
			Cast:        m.Cast,
			Genres:      m.Genres,
			Plot:        m.Plot,
			Poster:      m.Poster,
			Backdrop:    m.Backdrop,
		})
		switch {
		case errors.Is(err, domain.ErrConflict):
			result.Skipped++
		case err != nil:
			return result, fmt.Errorf("seed entry %d (%q): %w", i, m.Title, err)
		default:
			result.Created++
		}
	}
	r.logger.Info().Int("created", result.Created).Int("skipped", result.Skipped).Msg("seeded catalog")
	return result, nil
}

func (r *Resolver) hasMovie(ctx context.Context, title string, year int) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, nil
	}
	matches, err := r.movies.List(ctx, repository.MovieListFilters{Query: &title, Limit: 100})
	if err != nil {
		return false, err
	}
	for _, m := range matches {
		if strings.EqualFold(m.Title, title) && m.ReleaseYear == year {
			return true, nil
		}
	}
	return false, nil
}
