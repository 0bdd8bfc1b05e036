package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-reviews/internal/account"
	"github.com/Clark-Hu/movie-reviews/internal/auth"
	"github.com/Clark-Hu/movie-reviews/internal/catalog"
	"github.com/Clark-Hu/movie-reviews/internal/config"
	"github.com/Clark-Hu/movie-reviews/internal/review"
	"github.com/Clark-Hu/movie-reviews/internal/watchlist"
)

// HealthChecker reports database reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	Stats() *pgxpool.Stat
}

// Deps are the services the handlers call.
type Deps struct {
	Health     HealthChecker
	Catalog    *catalog.Resolver
	Reviews    *review.Controller
	Aggregator *review.Aggregator
	Watchlist  *watchlist.Manager
	Accounts   *account.Service
	Tokens     *auth.TokenIssuer
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg        config.Config
	health     HealthChecker
	catalog    *catalog.Resolver
	reviews    *review.Controller
	aggregator *review.Aggregator
	watchlist  *watchlist.Manager
	accounts   *account.Service
	tokens     *auth.TokenIssuer
	admins     map[string]struct{}
	logger     zerolog.Logger
	router     chi.Router
	httpSrv    *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps, logger zerolog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Location", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(metricsMiddleware)

	s := &Server{
		cfg:        cfg,
		health:     deps.Health,
		catalog:    deps.Catalog,
		reviews:    deps.Reviews,
		aggregator: deps.Aggregator,
		watchlist:  deps.Watchlist,
		accounts:   deps.Accounts,
		tokens:     deps.Tokens,
		admins:     make(map[string]struct{}, len(cfg.AdminUserIDs)),
		logger:     logger,
		router:     r,
	}
	for _, id := range cfg.AdminUserIDs {
		s.admins[id] = struct{}{}
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		if s.cfg.AuthRatePerMinute > 0 {
			r.Use(httprate.LimitByIP(s.cfg.AuthRatePerMinute, time.Minute))
		}
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	s.router.Route("/movies", func(r chi.Router) {
		r.Get("/", s.handleListMovies)
		r.Get("/trending", s.handleTrending)
		r.Get("/search", s.handleSearch)
		r.Get("/genre/{genre}", s.handleMoviesByGenre)
		r.Get("/{id}", s.handleGetMovie)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateMovie)
			r.Put("/{id}", s.handleUpdateMovie)
			r.Delete("/{id}", s.handleDeleteMovie)
		})
	})

	s.router.Route("/reviews", func(r chi.Router) {
		r.Get("/", s.handleRecentReviews)
		r.Get("/movie/{movieId}", s.handleMovieReviews)
		r.Get("/{id}", s.handleGetReview)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateReview)
			r.Put("/{id}", s.handleUpdateReview)
			r.Delete("/{id}", s.handleDeleteReview)
		})
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/current", s.handleCurrentUser)
			r.Put("/me", s.handleUpdateProfile)
			r.Post("/me/watchlist", s.handleAddToWatchlist)
			r.Delete("/me/watchlist/{movieId}", s.handleRemoveFromWatchlist)
		})
		r.Get("/{username}", s.handleGetUser)
		r.Get("/{username}/reviews", s.handleUserReviews)
		r.Get("/{username}/watchlist", s.handleUserWatchlist)
	})

	s.router.With(s.requireAuth, s.requireAdmin).Post("/admin/ratings/reconcile", s.handleReconcileRatings)
}

// Start boots the HTTP server and blocks until ctx ends or serving fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

type healthResponse struct {
	Status string      `json:"status"`
	DB     *poolHealth `json:"db,omitempty"`
}

type poolHealth struct {
	TotalConns    int32 `json:"totalConns"`
	IdleConns     int32 `json:"idleConns"`
	AcquiredConns int32 `json:"acquiredConns"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		s.respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.health.HealthCheck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unavailable")
		return
	}
	resp := healthResponse{Status: "ok"}
	if stat := s.health.Stats(); stat != nil {
		resp.DB = &poolHealth{
			TotalConns:    stat.TotalConns(),
			IdleConns:     stat.IdleConns(),
			AcquiredConns: stat.AcquiredConns(),
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}
