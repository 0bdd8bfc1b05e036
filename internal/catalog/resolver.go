// Package catalog resolves local and TMDb movie identifiers to local records
// and serves the local catalog and upstream listings.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
	"github.com/Clark-Hu/movie-reviews/internal/metrics"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
	"github.com/Clark-Hu/movie-reviews/internal/tmdb"
)

const (
	// MaxListingPages caps pagination of upstream listings.
	MaxListingPages = 10

	WindowDay  = "day"
	WindowWeek = "week"
)

// MovieStore is the persistence the resolver needs.
type MovieStore interface {
	GetByID(ctx context.Context, id string) (domain.Movie, error)
	GetByTMDBID(ctx context.Context, tmdbID int64) (domain.Movie, error)
	Import(ctx context.Context, params repository.MovieCreateParams) (domain.Movie, bool, error)
	Create(ctx context.Context, params repository.MovieCreateParams) (domain.Movie, error)
	Update(ctx context.Context, id string, params repository.MovieUpdateParams) (domain.Movie, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters repository.MovieListFilters) ([]domain.Movie, error)
	ListByGenre(ctx context.Context, genre string, offset, limit int) ([]domain.Movie, int64, error)
}

// ReviewRemover deletes the reviews of a movie ahead of the movie itself.
type ReviewRemover interface {
	DeleteByMovie(ctx context.Context, movieID string) (int64, error)
}

// Resolver implements catalog lookups, lazy import and listings.
type Resolver struct {
	movies  MovieStore
	reviews ReviewRemover
	gateway tmdb.Client
	logger  zerolog.Logger
}

// NewResolver wires a Resolver.
func NewResolver(movies MovieStore, reviews ReviewRemover, gateway tmdb.Client, logger zerolog.Logger) *Resolver {
	return &Resolver{
		movies:  movies,
		reviews: reviews,
		gateway: gateway,
		logger:  logger.With().Str("component", "catalog").Logger(),
	}
}

// Resolve returns the local record for ref, importing it from TMDb on first
// access to an external id.
func (r *Resolver) Resolve(ctx context.Context, ref domain.MovieRef) (domain.Movie, error) {
	if ref.IsLocal() {
		return r.movies.GetByID(ctx, ref.Local())
	}

	movie, err := r.movies.GetByTMDBID(ctx, ref.External())
	if err == nil {
		return movie, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Movie{}, err
	}

	details, err := r.gateway.MovieDetails(ctx, ref.External())
	if err != nil {
		return domain.Movie{}, r.gatewayError(err, "details")
	}

	tmdbID := ref.External()
	movie, created, err := r.movies.Import(ctx, repository.MovieCreateParams{
		TMDBID:      &tmdbID,
		Title:       details.Title,
		ReleaseYear: details.ReleaseYear,
		Director:    details.Director,
		Cast:        details.Cast,
		Genres:      details.Genres,
		Plot:        details.Plot,
		Poster:      details.Poster,
		Backdrop:    details.Backdrop,
	})
	if err != nil {
		return domain.Movie{}, err
	}
	if created {
		metrics.CatalogImports.Inc()
		r.logger.Info().Int64("tmdb_id", tmdbID).Str("movie_id", movie.ID).Msg("imported movie")
	}
	return movie, nil
}

// ResolveID parses raw and resolves it to a local movie id.
func (r *Resolver) ResolveID(ctx context.Context, raw string) (string, error) {
	ref, err := domain.ParseMovieRef(raw)
	if err != nil {
		return "", err
	}
	movie, err := r.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return movie.ID, nil
}

func (r *Resolver) gatewayError(err error, operation string) error {
	if errors.Is(err, tmdb.ErrNotFound) {
		return domain.Errorf(domain.ErrNotFound, "movie not found")
	}
	r.logger.Error().Err(err).Str("operation", operation).Msg("tmdb request failed")
	return domain.Errorf(domain.ErrUpstream, "external catalog unavailable")
}

// Listing is one page of upstream movies in local units.
type Listing struct {
	Movies       []ListingItem
	Page         int
	TotalPages   int
	TotalResults int
}

// ListingItem is a non-persisted upstream movie.
type ListingItem struct {
	TMDBID      int64
	Title       string
	ReleaseYear int
	Plot        string
	Poster      string
	Backdrop    string
	// AverageRating is the upstream score scaled to 0..5.
	AverageRating float64
}

// Trending lists trending movies. window defaults to "week".
func (r *Resolver) Trending(ctx context.Context, window string, page int) (Listing, error) {
	if window == "" {
		window = WindowWeek
	}
	if window != WindowDay && window != WindowWeek {
		return Listing{}, domain.Errorf(domain.ErrValidation, "time must be day or week")
	}
	if err := checkListingPage(page); err != nil {
		return Listing{}, err
	}
	result, err := r.gateway.Trending(ctx, window, page)
	if err != nil {
		return Listing{}, r.gatewayError(err, "trending")
	}
	return toListing(result, page), nil
}

// Search lists upstream movies matching query.
func (r *Resolver) Search(ctx context.Context, query string, page int) (Listing, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Listing{}, domain.Errorf(domain.ErrValidation, "search query is required")
	}
	if err := checkListingPage(page); err != nil {
		return Listing{}, err
	}
	result, err := r.gateway.Search(ctx, query, page)
	if err != nil {
		return Listing{}, r.gatewayError(err, "search")
	}
	return toListing(result, page), nil
}

func checkListingPage(page int) error {
	if page < 1 || page > MaxListingPages {
		return domain.Errorf(domain.ErrValidation, "page must be between 1 and %d", MaxListingPages)
	}
	return nil
}

func toListing(page *tmdb.Page, requested int) Listing {
	listing := Listing{
		Movies:       make([]ListingItem, 0, len(page.Results)),
		Page:         requested,
		TotalPages:   min(page.TotalPages, MaxListingPages),
		TotalResults: page.TotalResults,
	}
	for _, item := range page.Results {
		listing.Movies = append(listing.Movies, ListingItem{
			TMDBID:        item.TMDBID,
			Title:         item.Title,
			ReleaseYear:   item.ReleaseYear,
			Plot:          item.Plot,
			Poster:        item.Poster,
			Backdrop:      item.Backdrop,
			AverageRating: item.VoteAverage / 2,
		})
	}
	return listing
}

// Lookup returns the local record for ref without importing it.
func (r *Resolver) Lookup(ctx context.Context, ref domain.MovieRef) (domain.Movie, error) {
	if ref.IsLocal() {
		return r.movies.GetByID(ctx, ref.Local())
	}
	return r.movies.GetByTMDBID(ctx, ref.External())
}
