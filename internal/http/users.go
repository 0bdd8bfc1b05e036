package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-reviews/internal/account"
	"github.com/Clark-Hu/movie-reviews/internal/domain"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type profileUpdateRequest struct {
	Username       *string `json:"username" validate:"omitempty,min=1,max=50"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Bio            *string `json:"bio" validate:"omitempty,max=500"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,max=2048"`
}

type watchlistRequest struct {
	MovieID string `json:"movieId" validate:"required"`
}

type watchlistResponse struct {
	Watchlist []string `json:"watchlist"`
}

type userResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profilePicture"`
	Watchlist      []string  `json:"watchlist"`
	CreatedAt      time.Time `json:"createdAt"`
}

type reconcileResponse struct {
	MoviesProcessed int `json:"moviesProcessed"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	token, err := s.accounts.Register(r.Context(), account.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	token, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.Current(r.Context(), currentUserID(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user, true))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	user, err := s.accounts.UpdateProfile(r.Context(), currentUserID(r), account.ProfileParams{
		Username:       req.Username,
		Email:          req.Email,
		Bio:            req.Bio,
		ProfilePicture: trimmedPtr(req.ProfilePicture),
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user, true))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.ByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user, false))
}

func (s *Server) handleUserReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.reviews.ListForUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponses(reviews))
}

func (s *Server) handleUserWatchlist(w http.ResponseWriter, r *http.Request) {
	movies, err := s.watchlist.List(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponses(movies))
}

func (s *Server) handleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	movieID, err := s.catalog.ResolveID(r.Context(), req.MovieID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	ids, err := s.watchlist.Add(r.Context(), currentUserID(r), movieID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, watchlistResponse{Watchlist: nonNilStrings(ids)})
}

func (s *Server) handleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	ref, err := domain.ParseMovieRef(chi.URLParam(r, "movieId"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	var ids []string
	movie, err := s.catalog.Lookup(r.Context(), ref)
	switch {
	case err == nil:
		ids, err = s.watchlist.Remove(r.Context(), userID, movie.ID)
	case errors.Is(err, domain.ErrNotFound):
		// Never imported, so it cannot be on any watchlist.
		ids, err = s.watchlist.IDs(r.Context(), userID)
	}
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, watchlistResponse{Watchlist: nonNilStrings(ids)})
}

func (s *Server) handleReconcileRatings(w http.ResponseWriter, r *http.Request) {
	n, err := s.aggregator.ReconcileAll(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.logger.Info().Str("user_id", currentUserID(r)).Int("movies", n).Msg("ratings reconciled")
	s.respondJSON(w, http.StatusOK, reconcileResponse{MoviesProcessed: n})
}

func toUserResponse(user domain.User, includeEmail bool) userResponse {
	resp := userResponse{
		ID:             user.ID,
		Username:       user.Username,
		Bio:            user.Bio,
		ProfilePicture: user.ProfilePicture,
		Watchlist:      nonNilStrings(user.Watchlist),
		CreatedAt:      user.CreatedAt,
	}
	if includeEmail {
		resp.Email = user.Email
	}
	return resp
}
