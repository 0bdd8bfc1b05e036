package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MovieRef identifies a movie either by local key or by TMDb id.
type MovieRef struct {
	local    string
	external int64
}

// LocalRef references a movie by its local primary key.
func LocalRef(id string) MovieRef {
	return MovieRef{local: id}
}

// ExternalRef references a movie by its TMDb id.
func ExternalRef(tmdbID int64) MovieRef {
	return MovieRef{external: tmdbID}
}

// IsLocal reports whether the reference is a local key.
func (r MovieRef) IsLocal() bool {
	return r.local != ""
}

// Local returns the local key; empty for external references.
func (r MovieRef) Local() string {
	return r.local
}

// External returns the TMDb id; zero for local references.
func (r MovieRef) External() int64 {
	return r.external
}

func (r MovieRef) String() string {
	if r.IsLocal() {
		return r.local
	}
	return "tmdb:" + strconv.FormatInt(r.external, 10)
}

// ParseMovieRef classifies raw as a local UUID key or a positive TMDb id.
func ParseMovieRef(raw string) (MovieRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MovieRef{}, Errorf(ErrValidation, "movie id is required")
	}
	if isDigits(raw) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return MovieRef{}, Errorf(ErrValidation, "invalid movie id format")
		}
		return ExternalRef(id), nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return MovieRef{}, Errorf(ErrValidation, "invalid movie id format")
	}
	return LocalRef(parsed.String()), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
