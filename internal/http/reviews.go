package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
)

type reviewCreateRequest struct {
	MovieID string   `json:"movieId" validate:"required"`
	Text    string   `json:"text" validate:"required,max=5000"`
	Rating  *float64 `json:"rating" validate:"required,gte=0,lte=5"`
}

type reviewUpdateRequest struct {
	Text   string   `json:"text" validate:"required,max=5000"`
	Rating *float64 `json:"rating" validate:"required,gte=0,lte=5"`
}

type reviewResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profilePicture"`
	MovieID        string    `json:"movieId"`
	MovieTitle     string    `json:"movieTitle"`
	MoviePoster    string    `json:"moviePoster"`
	Text           string    `json:"text"`
	Rating         float64   `json:"rating"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (s *Server) handleRecentReviews(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r.URL.Query(), "limit", 10)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if limit < 1 || limit > 100 {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 100")
		return
	}
	reviews, err := s.reviews.ListRecent(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponses(reviews))
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.reviews.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(review))
}

func (s *Server) handleMovieReviews(w http.ResponseWriter, r *http.Request) {
	movieID, ok := s.localMovieID(w, r, chi.URLParam(r, "movieId"))
	if !ok {
		return
	}
	reviews, err := s.reviews.ListForMovie(r.Context(), movieID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponses(reviews))
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	movieID, err := s.catalog.ResolveID(r.Context(), req.MovieID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	review, err := s.reviews.Create(r.Context(), currentUserID(r), movieID, req.Text, *req.Rating)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/reviews/%s", review.ID))
	s.respondJSON(w, http.StatusCreated, toReviewResponse(review))
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	review, err := s.reviews.Update(r.Context(), chi.URLParam(r, "id"), currentUserID(r), req.Text, *req.Rating)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(review))
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := s.reviews.Delete(r.Context(), chi.URLParam(r, "id"), currentUserID(r)); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toReviewResponse(review domain.Review) reviewResponse {
	return reviewResponse{
		ID:             review.ID,
		UserID:         review.UserID,
		Username:       review.Username,
		ProfilePicture: review.ProfilePicture,
		MovieID:        review.MovieID,
		MovieTitle:     review.MovieTitle,
		MoviePoster:    review.MoviePoster,
		Text:           review.Text,
		Rating:         review.Rating,
		CreatedAt:      review.CreatedAt,
		UpdatedAt:      review.UpdatedAt,
	}
}

func toReviewResponses(reviews []domain.Review) []reviewResponse {
	items := make([]reviewResponse, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, toReviewResponse(review))
	}
	return items
}
