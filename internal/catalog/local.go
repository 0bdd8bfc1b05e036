package catalog

import (
	"context"
	"strings"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
)

// ListParams selects a page of the local catalog.
type ListParams struct {
	Query string
	Sort  repository.MovieSort
	Page  int
	Limit int
}

// GenrePage is one page of local movies carrying a genre.
type GenrePage struct {
	Movies       []domain.Movie
	Genre        string
	Page         int
	TotalPages   int
	TotalResults int64
}

// List returns local movies, optionally filtered by title substring.
func (r *Resolver) List(ctx context.Context, params ListParams) ([]domain.Movie, error) {
	switch params.Sort {
	case "", repository.SortTitle, repository.SortRating, repository.SortNewest, repository.SortOldest:
	default:
		return nil, domain.Errorf(domain.ErrValidation, "sort must be one of title, rating, newest, oldest")
	}
	page, limit := normalizePage(params.Page, params.Limit)
	filters := repository.MovieListFilters{
		Sort:   params.Sort,
		Offset: (page - 1) * limit,
		Limit:  limit,
	}
	if q := strings.TrimSpace(params.Query); q != "" {
		filters.Query = &q
	}
	return r.movies.List(ctx, filters)
}

// ByGenre returns local movies with a matching genre tag, best rated first.
func (r *Resolver) ByGenre(ctx context.Context, genre string, page, limit int) (GenrePage, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return GenrePage{}, domain.Errorf(domain.ErrValidation, "genre is required")
	}
	page, limit = normalizePage(page, limit)
	movies, total, err := r.movies.ListByGenre(ctx, genre, (page-1)*limit, limit)
	if err != nil {
		return GenrePage{}, err
	}
	return GenrePage{
		Movies:       movies,
		Genre:        genre,
		Page:         page,
		TotalPages:   int((total + int64(limit) - 1) / int64(limit)),
		TotalResults: total,
	}, nil
}

// Create adds a locally authored movie.
func (r *Resolver) Create(ctx context.Context, params repository.MovieCreateParams) (domain.Movie, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Director = strings.TrimSpace(params.Director)
	switch {
	case params.Title == "":
		return domain.Movie{}, domain.Errorf(domain.ErrValidation, "title is required")
	case params.Director == "":
		return domain.Movie{}, domain.Errorf(domain.ErrValidation, "director is required")
	case params.ReleaseYear <= 0:
		return domain.Movie{}, domain.Errorf(domain.ErrValidation, "releaseYear is required")
	case params.TMDBID != nil && *params.TMDBID <= 0:
		return domain.Movie{}, domain.Errorf(domain.ErrValidation, "tmdbId must be positive")
	}
	return r.movies.Create(ctx, params)
}

// Update applies a partial update to the authored fields of a movie.
func (r *Resolver) Update(ctx context.Context, id string, params repository.MovieUpdateParams) (domain.Movie, error) {
	if params.Title != nil && strings.TrimSpace(*params.Title) == "" {
		return domain.Movie{}, domain.Errorf(domain.ErrValidation, "title cannot be empty")
	}
	if params.Director != nil && strings.TrimSpace(*params.Director) == "" {
		return domain.Movie{}, domain.Errorf(domain.ErrValidation, "director cannot be empty")
	}
	if params.ReleaseYear != nil && *params.ReleaseYear <= 0 {
		return domain.Movie{}, domain.Errorf(domain.ErrValidation, "releaseYear must be positive")
	}
	return r.movies.Update(ctx, id, params)
}

// Delete removes a movie together with its reviews.
func (r *Resolver) Delete(ctx context.Context, id string) error {
	if _, err := r.movies.GetByID(ctx, id); err != nil {
		return err
	}
	removed, err := r.reviews.DeleteByMovie(ctx, id)
	if err != nil {
		return err
	}
	if err := r.movies.Delete(ctx, id); err != nil {
		return err
	}
	r.logger.Info().Str("movie_id", id).Int64("reviews_removed", removed).Msg("deleted movie")
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
