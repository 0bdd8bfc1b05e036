package tmdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// TestHTTPClientSmoke checks the client against a live TMDb-compatible
// service, such as cmd/tmdb-mock.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("TMDB_URL")
	if baseURL == "" {
		t.Skip("TMDB_URL not provided")
	}
	client, err := NewHTTPClient(Options{
		BaseURL:      baseURL,
		APIKey:       os.Getenv("TMDB_API_KEY"),
		ImageBaseURL: "https://image.tmdb.org/t/p/w500",
		Timeout:      3 * time.Second,
		Logger:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	page, err := client.Trending(ctx, "week", 1)
	if err != nil {
		t.Fatalf("fetch trending: %v", err)
	}
	if len(page.Results) == 0 {
		t.Fatalf("empty trending page")
	}
	details, err := client.MovieDetails(ctx, page.Results[0].TMDBID)
	if err != nil {
		t.Fatalf("fetch details: %v", err)
	}
	if details.Title == "" || details.Director == "" {
		t.Fatalf("unexpected details payload: %+v", details)
	}
}
