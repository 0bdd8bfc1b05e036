package httpserver

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Clark-Hu/movie-reviews/internal/domain"
	"github.com/Clark-Hu/movie-reviews/internal/validation"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeJSONBody decodes a single JSON object into dst and validates it.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	return validation.ValidateStruct(dst)
}

func decodeError(err error) error {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		return domain.Errorf(domain.ErrValidation, "Malformed JSON payload")
	case errors.As(err, &typeError):
		return domain.Errorf(domain.ErrValidation, "Invalid value for field %s", typeError.Field)
	case errors.Is(err, io.EOF):
		return domain.Errorf(domain.ErrValidation, "Request body cannot be empty")
	case errors.As(err, &maxBytesError):
		return domain.Errorf(domain.ErrValidation, "Request body too large")
	default:
		return domain.Errorf(domain.ErrValidation, "Unable to parse request body")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// respondServiceError maps domain error kinds onto HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", domain.Message(err, "Invalid request"))
	case errors.Is(err, domain.ErrUnauthenticated):
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", domain.Message(err, "Missing or invalid authentication information"))
	case errors.Is(err, domain.ErrForbidden):
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", domain.Message(err, "Not allowed"))
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", domain.Message(err, "Resource not found"))
	case errors.Is(err, domain.ErrConflict):
		s.respondError(w, http.StatusBadRequest, "CONFLICT", domain.Message(err, "Resource already exists"))
	case errors.Is(err, domain.ErrUpstream):
		s.respondError(w, http.StatusInternalServerError, "UPSTREAM_ERROR", domain.Message(err, "External service failed"))
	default:
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// intQuery parses an optional integer query parameter.
func intQuery(query url.Values, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Errorf(domain.ErrValidation, "invalid %s value", name)
	}
	return value, nil
}

func trimmedPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	return &val
}
