// Command tmdb-mock serves a small fixture through the subset of the TMDb v3
// API the catalog gateway calls, for local runs and contract tests.
package main

import (
	"flag"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/Clark-Hu/movie-reviews/internal/logging"
)

const pageSize = 20

// fixtureMovie is a TMDb details document; only the fields listings need are
// decoded, the rest is replayed verbatim.
type fixtureMovie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	ReleaseDate  string  `json:"release_date"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`

	raw json.RawMessage
}

type listPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []fixtureMovie `json:"results"`
}

type fixture struct {
	movies []fixtureMovie
	byID   map[int64]fixtureMovie
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	fx := &fixture{byID: make(map[int64]fixtureMovie, len(docs))}
	for _, doc := range docs {
		var m fixtureMovie
		if err := json.Unmarshal(doc, &m); err != nil {
			return nil, err
		}
		m.raw = doc
		fx.movies = append(fx.movies, m)
		fx.byID[m.ID] = m
	}
	return fx, nil
}

func (fx *fixture) page(movies []fixtureMovie, page int) listPage {
	total := len(movies)
	pages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	out := listPage{Page: page, TotalPages: pages, TotalResults: total, Results: []fixtureMovie{}}
	if start < total {
		end := min(start+pageSize, total)
		out.Results = movies[start:end]
	}
	return out
}

func main() {
	var (
		port     = flag.String("port", "9098", "port to listen on")
		data     = flag.String("data", "testdata/tmdb-mock.json", "path to mock data file")
		apiKey   = flag.String("api-key", "", "require this api_key query parameter when set")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := logging.New(logging.Config{Level: *logLevel, Format: "console"})

	fx, err := loadFixture(*data)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *data).Msg("load mock data")
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if *apiKey != "" && req.URL.Query().Get("api_key") != *apiKey {
				writeStatus(w, http.StatusUnauthorized, "Invalid API key: You must be granted a valid key.")
				return
			}
			logger.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("request")
			next.ServeHTTP(w, req)
		})
	})

	r.Route("/3", func(r chi.Router) {
		r.Get("/movie/{id}", func(w http.ResponseWriter, req *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
			m, ok := fx.byID[id]
			if err != nil || !ok {
				writeStatus(w, http.StatusNotFound, "The resource you requested could not be found.")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(m.raw)
		})
		r.Get("/trending/movie/{window}", func(w http.ResponseWriter, req *http.Request) {
			window := chi.URLParam(req, "window")
			if window != "day" && window != "week" {
				writeStatus(w, http.StatusNotFound, "Invalid time window.")
				return
			}
			writeJSON(w, fx.page(fx.movies, pageParam(req)))
		})
		r.Get("/search/movie", func(w http.ResponseWriter, req *http.Request) {
			query := strings.ToLower(strings.TrimSpace(req.URL.Query().Get("query")))
			var hits []fixtureMovie
			for _, m := range fx.movies {
				if query != "" && strings.Contains(strings.ToLower(m.Title), query) {
					hits = append(hits, m)
				}
			}
			writeJSON(w, fx.page(hits, pageParam(req)))
		})
	})

	addr := ":" + *port
	logger.Info().Str("addr", addr).Int("movies", len(fx.movies)).Msg("mock tmdb listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":        false,
		"status_message": message,
	})
}
