package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const detailsBody = `{
  "id": 603,
  "title": "The Matrix",
  "release_date": "1999-03-30",
  "overview": "A hacker learns the truth.",
  "poster_path": "/poster.jpg",
  "backdrop_path": "",
  "genres": [{"id": 28, "name": "Action"}, {"id": 878, "name": "Science Fiction"}],
  "credits": {
    "cast": [
      {"name": "Keanu Reeves"}, {"name": "Laurence Fishburne"}, {"name": "Carrie-Anne Moss"},
      {"name": "Hugo Weaving"}, {"name": "Joe Pantoliano"}, {"name": "Marcus Chong"}
    ],
    "crew": [
      {"name": "Bill Pope", "job": "Director of Photography"},
      {"name": "Lana Wachowski", "job": "Director"},
      {"name": "Lilly Wachowski", "job": "Director"}
    ]
  }
}`

const listBody = `{
  "page": 2,
  "total_pages": 500,
  "total_results": 10000,
  "results": [
    {"id": 1, "title": "One", "release_date": "2024-01-01", "poster_path": "/one.jpg", "vote_average": 8.2},
    {"id": 2, "title": "Two", "release_date": "", "vote_average": 5}
  ]
}`

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(Options{
		BaseURL:      srv.URL + "/3",
		APIKey:       "secret",
		ImageBaseURL: "https://img.example/w500",
		Timeout:      2 * time.Second,
		Logger:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestMovieDetails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/movie/603" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "secret" {
			t.Errorf("api_key not forwarded")
		}
		if r.URL.Query().Get("append_to_response") != "credits" {
			t.Errorf("credits not requested")
		}
		_, _ = w.Write([]byte(detailsBody))
	}))

	details, err := client.MovieDetails(context.Background(), 603)
	if err != nil {
		t.Fatalf("MovieDetails: %v", err)
	}
	if details.Director != "Lana Wachowski" {
		t.Fatalf("director = %q", details.Director)
	}
	if len(details.Cast) != 5 || details.Cast[4] != "Joe Pantoliano" {
		t.Fatalf("cast = %v", details.Cast)
	}
	if details.ReleaseYear != 1999 {
		t.Fatalf("year = %d", details.ReleaseYear)
	}
	if details.Poster != "https://img.example/w500/poster.jpg" || details.Backdrop != "" {
		t.Fatalf("images = %q / %q", details.Poster, details.Backdrop)
	}
	if len(details.Genres) != 2 || details.Genres[1] != "Science Fiction" {
		t.Fatalf("genres = %v", details.Genres)
	}
}

func TestMovieDetailsNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status_code":34}`, http.StatusNotFound)
	}))

	if _, err := client.MovieDetails(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpstreamError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.Trending(context.Background(), "week", 1)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want generic upstream error", err)
	}
}

func TestTrendingAndSearch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/3/trending/movie/day":
			if r.URL.Query().Get("page") != "2" {
				t.Errorf("page = %s", r.URL.Query().Get("page"))
			}
		case "/3/search/movie":
			if r.URL.Query().Get("query") != "the matrix" {
				t.Errorf("query = %s", r.URL.Query().Get("query"))
			}
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(listBody))
	}))

	page, err := client.Trending(context.Background(), "day", 2)
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if page.TotalPages != 500 || len(page.Results) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Results[0].VoteAverage != 8.2 || page.Results[0].ReleaseYear != 2024 {
		t.Fatalf("first item = %+v", page.Results[0])
	}
	if page.Results[1].ReleaseYear != 0 || page.Results[1].Poster != "" {
		t.Fatalf("second item = %+v", page.Results[1])
	}

	if _, err := client.Search(context.Background(), "the matrix", 2); err != nil {
		t.Fatalf("Search: %v", err)
	}
}

func TestNewHTTPClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewHTTPClient(Options{BaseURL: "api.themoviedb.org/3"}); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestConvertDetailsWithoutCredits(t *testing.T) {
	details := convertDetails(detailsResponse{ID: 7, Title: "Bare"}, "https://img")
	if details.Director != unknownDirector {
		t.Fatalf("director = %q", details.Director)
	}
	if details.Cast == nil || len(details.Cast) != 0 {
		t.Fatalf("cast = %v", details.Cast)
	}
	if details.ReleaseYear != 0 {
		t.Fatalf("year = %d", details.ReleaseYear)
	}
}
