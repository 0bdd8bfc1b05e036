package httpserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-reviews/internal/account"
	"github.com/Clark-Hu/movie-reviews/internal/auth"
	"github.com/Clark-Hu/movie-reviews/internal/catalog"
	"github.com/Clark-Hu/movie-reviews/internal/config"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
	"github.com/Clark-Hu/movie-reviews/internal/review"
	"github.com/Clark-Hu/movie-reviews/internal/testdb"
	"github.com/Clark-Hu/movie-reviews/internal/tmdb"
	"github.com/Clark-Hu/movie-reviews/internal/watchlist"
)

// fakeTMDB serves fixed details and listings for handler tests.
type fakeTMDB struct {
	details map[int64]*tmdb.Details
	fail    bool
}

func (f *fakeTMDB) MovieDetails(ctx context.Context, id int64) (*tmdb.Details, error) {
	if f.fail {
		return nil, errors.New("upstream down")
	}
	d, ok := f.details[id]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return d, nil
}

func (f *fakeTMDB) Trending(ctx context.Context, window string, page int) (*tmdb.Page, error) {
	if f.fail {
		return nil, errors.New("upstream down")
	}
	return &tmdb.Page{
		Page:         page,
		TotalPages:   1000,
		TotalResults: 20000,
		Results:      []tmdb.ListItem{{TMDBID: 603, Title: "The Matrix", ReleaseYear: 1999, VoteAverage: 8.2}},
	}, nil
}

func (f *fakeTMDB) Search(ctx context.Context, query string, page int) (*tmdb.Page, error) {
	return f.Trending(ctx, "week", page)
}

type testServer struct {
	srv  *Server
	tmdb *fakeTMDB
}

func buildTestServer(tb testing.TB) *testServer {
	tb.Helper()
	cfg := config.Config{
		Port:               "0",
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
		AuthRatePerMinute:  10000,
		CORSAllowedOrigins: []string{"*"},
	}

	pool := testdb.New(tb, "movies_test_handlers", 42000)
	repo := repository.NewWithPool(pool)
	logger := zerolog.Nop()
	gateway := &fakeTMDB{details: map[int64]*tmdb.Details{
		603: {TMDBID: 603, Title: "The Matrix", ReleaseYear: 1999, Director: "Lana Wachowski", Cast: []string{"Keanu Reeves"}, Genres: []string{"Action"}},
	}}

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	aggregator := review.NewAggregator(repo.Reviews, repo.Movies, logger)
	watch := watchlist.NewManager(repo.Watchlist, repo.Movies, repo.Users)
	srv := New(cfg, Deps{
		Catalog:    catalog.NewResolver(repo.Movies, repo.Reviews, gateway, logger),
		Reviews:    review.NewController(repo.Reviews, repo.Movies, repo.Users, aggregator, logger),
		Aggregator: aggregator,
		Watchlist:  watch,
		Accounts:   account.NewService(repo.Users, watch, tokens, logger),
		Tokens:     tokens,
	}, logger)
	return &testServer{srv: srv, tmdb: gateway}
}

func (ts *testServer) do(t testing.TB, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			payload.WriteString(raw)
		} else if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) register(t testing.TB, username string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	decode(t, rec, &resp)
	return resp.Token
}

func decode(t testing.TB, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t testing.TB, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	ts := buildTestServer(t)
	ts.register(t, "alice")

	rec := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "secret123",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	var errResp errorResponse
	decode(t, rec, &errResp)
	if errResp.Code != "CONFLICT" || errResp.Message != "username already taken" {
		t.Fatalf("error = %+v", errResp)
	}

	rec = ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{"username": "bob", "email": "bad", "password": "secret123"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodPost, "/auth/register", "", `{"username":`)
	expectStatus(t, rec, http.StatusBadRequest)

	// 40 characters but 80 bytes, over bcrypt's input limit.
	rec = ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "carol", "email": "carol@example.com", "password": strings.Repeat("é", 40),
	})
	expectStatus(t, rec, http.StatusBadRequest)
	decode(t, rec, &errResp)
	if errResp.Code != "VALIDATION_ERROR" {
		t.Fatalf("long password error = %+v", errResp)
	}

	rec = ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ALICE@example.com", "password": "secret123"})
	expectStatus(t, rec, http.StatusOK)
	var tok tokenResponse
	decode(t, rec, &tok)

	rec = ts.do(t, http.MethodGet, "/users/current", tok.Token, nil)
	expectStatus(t, rec, http.StatusOK)
	var me userResponse
	decode(t, rec, &me)
	if me.Username != "alice" || me.Email != "alice@example.com" || me.Watchlist == nil {
		t.Fatalf("current user = %+v", me)
	}

	rec = ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = ts.do(t, http.MethodGet, "/users/current", "garbage", nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = ts.do(t, http.MethodGet, "/users/alice", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var public userResponse
	decode(t, rec, &public)
	if public.Email != "" {
		t.Fatalf("public profile leaked email: %+v", public)
	}
}

func TestMovieCatalogRoutes(t *testing.T) {
	ts := buildTestServer(t)
	token := ts.register(t, "curator")

	body := map[string]interface{}{"title": "Heat", "releaseYear": 1995, "director": "Michael Mann", "genres": []string{"Crime", "Drama"}}
	rec := ts.do(t, http.MethodPost, "/movies", "", body)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = ts.do(t, http.MethodPost, "/movies", token, map[string]interface{}{"title": "No Director", "releaseYear": 2000})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodPost, "/movies", token, body)
	expectStatus(t, rec, http.StatusCreated)
	var created movieResponse
	decode(t, rec, &created)
	if created.AverageRating != 0 || len(created.Reviews) != 0 || rec.Header().Get("Location") != "/movies/"+created.ID {
		t.Fatalf("created = %+v", created)
	}

	rec = ts.do(t, http.MethodPut, "/movies/"+created.ID, token, `{"averageRating": 5}`)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodPut, "/movies/"+created.ID, token, map[string]string{"plot": "A heist."})
	expectStatus(t, rec, http.StatusOK)

	rec = ts.do(t, http.MethodGet, "/movies?q=hea&sort=rating", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var list []movieResponse
	decode(t, rec, &list)
	if len(list) != 1 || list[0].Plot != "A heist." {
		t.Fatalf("list = %+v", list)
	}

	rec = ts.do(t, http.MethodGet, "/movies/genre/dram", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var genre genreResponse
	decode(t, rec, &genre)
	if genre.TotalResults != 1 || genre.Genre != "dram" {
		t.Fatalf("genre = %+v", genre)
	}

	rec = ts.do(t, http.MethodGet, "/movies/not-an-id", "", nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodDelete, "/movies/"+created.ID, token, nil)
	expectStatus(t, rec, http.StatusNoContent)
	rec = ts.do(t, http.MethodGet, "/movies/"+created.ID, "", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestResolveImportsOnFirstView(t *testing.T) {
	ts := buildTestServer(t)

	rec := ts.do(t, http.MethodGet, "/movies/603", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var first movieDetailResponse
	decode(t, rec, &first)
	if first.TMDBID == nil || *first.TMDBID != 603 || first.AverageRating != 0 || len(first.Reviews) != 0 {
		t.Fatalf("imported = %+v", first)
	}

	rec = ts.do(t, http.MethodGet, "/movies/603", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var second movieDetailResponse
	decode(t, rec, &second)
	if second.ID != first.ID {
		t.Fatalf("second resolve id = %s, want %s", second.ID, first.ID)
	}

	rec = ts.do(t, http.MethodGet, "/movies/999", "", nil)
	expectStatus(t, rec, http.StatusNotFound)

	ts.tmdb.fail = true
	rec = ts.do(t, http.MethodGet, "/movies/777", "", nil)
	expectStatus(t, rec, http.StatusInternalServerError)
}

func TestReviewLifecycleKeepsAverage(t *testing.T) {
	ts := buildTestServer(t)
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bob")

	rec := ts.do(t, http.MethodPost, "/reviews", alice, map[string]interface{}{"movieId": "603", "text": "solid", "rating": 4})
	expectStatus(t, rec, http.StatusCreated)
	var aliceReview reviewResponse
	decode(t, rec, &aliceReview)

	rec = ts.do(t, http.MethodPost, "/reviews", alice, map[string]interface{}{"movieId": "603", "text": "again", "rating": 1})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodPost, "/reviews", bob, map[string]interface{}{"movieId": aliceReview.MovieID, "text": "great", "rating": 5})
	expectStatus(t, rec, http.StatusCreated)
	var bobReview reviewResponse
	decode(t, rec, &bobReview)

	average := func() movieDetailResponse {
		rec := ts.do(t, http.MethodGet, "/movies/"+aliceReview.MovieID, "", nil)
		expectStatus(t, rec, http.StatusOK)
		var movie movieDetailResponse
		decode(t, rec, &movie)
		return movie
	}
	if m := average(); m.AverageRating != 4.5 || len(m.Reviews) != 2 || len(m.ReviewDetails) != 2 {
		t.Fatalf("after two reviews: %+v", m)
	}

	rec = ts.do(t, http.MethodPut, "/reviews/"+aliceReview.ID, bob, map[string]interface{}{"text": "hijack", "rating": 0})
	expectStatus(t, rec, http.StatusForbidden)

	rec = ts.do(t, http.MethodPut, "/reviews/"+aliceReview.ID, alice, map[string]interface{}{"text": "meh", "rating": 2})
	expectStatus(t, rec, http.StatusOK)
	if m := average(); m.AverageRating != 3.5 {
		t.Fatalf("after update: %v", m.AverageRating)
	}

	rec = ts.do(t, http.MethodDelete, "/reviews/"+bobReview.ID, bob, nil)
	expectStatus(t, rec, http.StatusNoContent)
	if m := average(); m.AverageRating != 2 || len(m.Reviews) != 1 {
		t.Fatalf("after delete: %+v", m)
	}

	rec = ts.do(t, http.MethodDelete, "/reviews/"+aliceReview.ID, alice, nil)
	expectStatus(t, rec, http.StatusNoContent)
	if m := average(); m.AverageRating != 0 || len(m.Reviews) != 0 {
		t.Fatalf("after last delete: %+v", m)
	}

	rec = ts.do(t, http.MethodPost, "/reviews", alice, map[string]interface{}{"movieId": "603", "text": "x", "rating": 6})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodGet, "/users/alice/reviews", "", nil)
	expectStatus(t, rec, http.StatusOK)

	rec = ts.do(t, http.MethodPost, "/admin/ratings/reconcile", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	rec = ts.do(t, http.MethodPost, "/admin/ratings/reconcile", alice, nil)
	expectStatus(t, rec, http.StatusForbidden)

	ts.srv.admins[aliceReview.UserID] = struct{}{}
	rec = ts.do(t, http.MethodPost, "/admin/ratings/reconcile", alice, nil)
	expectStatus(t, rec, http.StatusOK)
	var reconciled reconcileResponse
	decode(t, rec, &reconciled)
	if reconciled.MoviesProcessed != 1 {
		t.Fatalf("reconciled = %+v", reconciled)
	}
}

func TestWatchlistRoutes(t *testing.T) {
	ts := buildTestServer(t)
	token := ts.register(t, "erin")

	rec := ts.do(t, http.MethodPost, "/users/me/watchlist", token, map[string]string{"movieId": "603"})
	expectStatus(t, rec, http.StatusOK)
	var wl watchlistResponse
	decode(t, rec, &wl)
	if len(wl.Watchlist) != 1 {
		t.Fatalf("watchlist = %v", wl.Watchlist)
	}

	rec = ts.do(t, http.MethodPost, "/users/me/watchlist", token, map[string]string{"movieId": "603"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = ts.do(t, http.MethodDelete, "/users/me/watchlist/424242", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &wl)
	if len(wl.Watchlist) != 1 {
		t.Fatalf("no-op remove changed watchlist: %v", wl.Watchlist)
	}

	rec = ts.do(t, http.MethodGet, "/users/erin/watchlist", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var movies []movieResponse
	decode(t, rec, &movies)
	if len(movies) != 1 || movies[0].Title != "The Matrix" {
		t.Fatalf("watchlist movies = %+v", movies)
	}

	rec = ts.do(t, http.MethodDelete, "/users/me/watchlist/603", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &wl)
	if len(wl.Watchlist) != 0 {
		t.Fatalf("after remove = %v", wl.Watchlist)
	}
}

func TestListingRoutes(t *testing.T) {
	ts := buildTestServer(t)

	rec := ts.do(t, http.MethodGet, "/movies/trending?time=day&page=2", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var listing listingResponse
	decode(t, rec, &listing)
	if listing.TotalPages != 10 || listing.Page != 2 || listing.Movies[0].AverageRating != 4.1 {
		t.Fatalf("listing = %+v", listing)
	}

	for _, path := range []string{
		"/movies/trending?page=11",
		"/movies/trending?page=abc",
		"/movies/search?query=",
		"/movies/trending?time=year",
	} {
		rec = ts.do(t, http.MethodGet, path, "", nil)
		expectStatus(t, rec, http.StatusBadRequest)
	}

	ts.tmdb.fail = true
	rec = ts.do(t, http.MethodGet, "/movies/search?query=matrix", "", nil)
	expectStatus(t, rec, http.StatusInternalServerError)
	var errResp errorResponse
	decode(t, rec, &errResp)
	if errResp.Code != "UPSTREAM_ERROR" {
		t.Fatalf("error = %+v", errResp)
	}
}

func TestHealthzWithoutStore(t *testing.T) {
	srv := New(config.Config{}, Deps{}, zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	expectStatus(t, rec, http.StatusOK)
}
