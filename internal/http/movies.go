package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-reviews/internal/catalog"
	"github.com/Clark-Hu/movie-reviews/internal/domain"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
)

type movieCreateRequest struct {
	TMDBID      *int64   `json:"tmdbId" validate:"omitempty,gt=0"`
	Title       string   `json:"title" validate:"required,max=300"`
	ReleaseYear int      `json:"releaseYear" validate:"required,gte=1850,lte=3000"`
	Director    string   `json:"director" validate:"required,max=200"`
	Cast        []string `json:"cast"`
	Genres      []string `json:"genres"`
	Plot        string   `json:"plot" validate:"max=5000"`
	Poster      string   `json:"poster"`
	Backdrop    string   `json:"backdrop"`
}

// Derived fields (averageRating, reviews) have no counterpart here; decoding
// rejects them as unknown fields.
type movieUpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=300"`
	ReleaseYear *int      `json:"releaseYear" validate:"omitempty,gte=1850,lte=3000"`
	Director    *string   `json:"director" validate:"omitempty,min=1,max=200"`
	Cast        *[]string `json:"cast"`
	Genres      *[]string `json:"genres"`
	Plot        *string   `json:"plot" validate:"omitempty,max=5000"`
	Poster      *string   `json:"poster"`
	Backdrop    *string   `json:"backdrop"`
}

type movieResponse struct {
	ID            string    `json:"id"`
	TMDBID        *int64    `json:"tmdbId,omitempty"`
	Title         string    `json:"title"`
	ReleaseYear   int       `json:"releaseYear"`
	Director      string    `json:"director"`
	Cast          []string  `json:"cast"`
	Genres        []string  `json:"genres"`
	Plot          string    `json:"plot"`
	Poster        string    `json:"poster"`
	Backdrop      string    `json:"backdrop"`
	AverageRating float64   `json:"averageRating"`
	Reviews       []string  `json:"reviews"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type movieDetailResponse struct {
	movieResponse
	ReviewDetails []reviewResponse `json:"reviewDetails"`
}

type listingResponse struct {
	Movies       []listingItemResponse `json:"movies"`
	Page         int                   `json:"page"`
	TotalPages   int                   `json:"totalPages"`
	TotalResults int                   `json:"totalResults"`
}

type listingItemResponse struct {
	TMDBID        int64   `json:"tmdbId"`
	Title         string  `json:"title"`
	ReleaseYear   int     `json:"releaseYear"`
	Plot          string  `json:"plot"`
	Poster        string  `json:"poster"`
	Backdrop      string  `json:"backdrop"`
	AverageRating float64 `json:"averageRating"`
}

type genreResponse struct {
	Movies       []movieResponse `json:"movies"`
	Genre        string          `json:"genre"`
	Page         int             `json:"page"`
	TotalPages   int             `json:"totalPages"`
	TotalResults int64           `json:"totalResults"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	params, err := buildListParams(r.URL.Query())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	movies, err := s.catalog.List(r.Context(), params)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(movies))
}

func buildListParams(query url.Values) (catalog.ListParams, error) {
	params := catalog.ListParams{
		Query: strings.TrimSpace(query.Get("q")),
		Sort:  repository.MovieSort(strings.TrimSpace(query.Get("sort"))),
	}
	var err error
	if params.Page, err = intQuery(query, "page", 1); err != nil {
		return params, err
	}
	if params.Limit, err = intQuery(query, "limit", 20); err != nil {
		return params, err
	}
	if params.Page < 1 {
		return params, domain.Errorf(domain.ErrValidation, "page must be at least 1")
	}
	if params.Limit < 1 || params.Limit > 100 {
		return params, domain.Errorf(domain.ErrValidation, "limit must be between 1 and 100")
	}
	return params, nil
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r.URL.Query(), "page", 1)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	listing, err := s.catalog.Trending(r.Context(), strings.TrimSpace(r.URL.Query().Get("time")), page)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toListingResponse(listing))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, err := intQuery(r.URL.Query(), "page", 1)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	listing, err := s.catalog.Search(r.Context(), r.URL.Query().Get("query"), page)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toListingResponse(listing))
}

func (s *Server) handleMoviesByGenre(w http.ResponseWriter, r *http.Request) {
	genre, err := url.PathUnescape(chi.URLParam(r, "genre"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid genre parameter")
		return
	}
	page, err := intQuery(r.URL.Query(), "page", 1)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	limit, err := intQuery(r.URL.Query(), "limit", 20)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	result, err := s.catalog.ByGenre(r.Context(), genre, page, limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, genreResponse{
		Movies:       toMovieResponses(result.Movies),
		Genre:        result.Genre,
		Page:         result.Page,
		TotalPages:   result.TotalPages,
		TotalResults: result.TotalResults,
	})
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	ref, err := domain.ParseMovieRef(chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	movie, err := s.catalog.Resolve(r.Context(), ref)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	resp := movieDetailResponse{movieResponse: toMovieResponse(movie), ReviewDetails: []reviewResponse{}}
	reviews, err := s.reviews.ListForMovie(r.Context(), movie.ID)
	if err != nil {
		// The movie itself is still worth returning.
		s.logger.Warn().Err(err).Str("movie_id", movie.ID).Msg("load reviews for movie detail")
	} else {
		resp.ReviewDetails = toReviewResponses(reviews)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	movie, err := s.catalog.Create(r.Context(), repository.MovieCreateParams{
		TMDBID:      req.TMDBID,
		Title:       req.Title,
		ReleaseYear: req.ReleaseYear,
		Director:    req.Director,
		Cast:        req.Cast,
		Genres:      req.Genres,
		Plot:        strings.TrimSpace(req.Plot),
		Poster:      strings.TrimSpace(req.Poster),
		Backdrop:    strings.TrimSpace(req.Backdrop),
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/movies/%s", movie.ID))
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := s.localMovieID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req movieUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	movie, err := s.catalog.Update(r.Context(), id, repository.MovieUpdateParams{
		Title:       trimmedPtr(req.Title),
		ReleaseYear: req.ReleaseYear,
		Director:    trimmedPtr(req.Director),
		Cast:        req.Cast,
		Genres:      req.Genres,
		Plot:        req.Plot,
		Poster:      trimmedPtr(req.Poster),
		Backdrop:    trimmedPtr(req.Backdrop),
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := s.localMovieID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := s.catalog.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// localMovieID maps a local key or an already imported TMDb id onto the
// local key without importing anything.
func (s *Server) localMovieID(w http.ResponseWriter, r *http.Request, raw string) (string, bool) {
	ref, err := domain.ParseMovieRef(raw)
	if err != nil {
		s.respondServiceError(w, r, err)
		return "", false
	}
	movie, err := s.catalog.Lookup(r.Context(), ref)
	if err != nil {
		s.respondServiceError(w, r, err)
		return "", false
	}
	return movie.ID, true
}

func toMovieResponse(movie domain.Movie) movieResponse {
	return movieResponse{
		ID:            movie.ID,
		TMDBID:        movie.TMDBID,
		Title:         movie.Title,
		ReleaseYear:   movie.ReleaseYear,
		Director:      movie.Director,
		Cast:          nonNilStrings(movie.Cast),
		Genres:        nonNilStrings(movie.Genres),
		Plot:          movie.Plot,
		Poster:        movie.Poster,
		Backdrop:      movie.Backdrop,
		AverageRating: movie.AverageRating,
		Reviews:       nonNilStrings(movie.ReviewIDs),
		CreatedAt:     movie.CreatedAt,
		UpdatedAt:     movie.UpdatedAt,
	}
}

func toMovieResponses(movies []domain.Movie) []movieResponse {
	items := make([]movieResponse, 0, len(movies))
	for _, movie := range movies {
		items = append(items, toMovieResponse(movie))
	}
	return items
}

func toListingResponse(listing catalog.Listing) listingResponse {
	resp := listingResponse{
		Movies:       make([]listingItemResponse, 0, len(listing.Movies)),
		Page:         listing.Page,
		TotalPages:   listing.TotalPages,
		TotalResults: listing.TotalResults,
	}
	for _, item := range listing.Movies {
		resp.Movies = append(resp.Movies, listingItemResponse{
			TMDBID:        item.TMDBID,
			Title:         item.Title,
			ReleaseYear:   item.ReleaseYear,
			Plot:          item.Plot,
			Poster:        item.Poster,
			Backdrop:      item.Backdrop,
			AverageRating: item.AverageRating,
		})
	}
	return resp
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
