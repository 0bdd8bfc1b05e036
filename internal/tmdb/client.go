// Package tmdb is a read-only client for The Movie Database API.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-reviews/internal/metrics"
)

// ErrNotFound is returned when upstream does not know the requested movie.
var ErrNotFound = errors.New("tmdb: not found")

// Client defines the contract for querying TMDb.
type Client interface {
	MovieDetails(ctx context.Context, id int64) (*Details, error)
	Trending(ctx context.Context, window string, page int) (*Page, error)
	Search(ctx context.Context, query string, page int) (*Page, error)
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL      string
	APIKey       string
	ImageBaseURL string
	Timeout      time.Duration
	Logger       zerolog.Logger
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL   *url.URL
	apiKey    string
	imageBase string
	client    *http.Client
	logger    zerolog.Logger
}

// NewHTTPClient constructs a new HTTP-backed TMDb client.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse tmdb url: %q is not absolute", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL:   parsed,
		apiKey:    opts.APIKey,
		imageBase: strings.TrimRight(opts.ImageBaseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: opts.Logger.With().Str("component", "tmdb").Logger(),
	}, nil
}

// MovieDetails fetches a movie together with its credits.
func (c *HTTPClient) MovieDetails(ctx context.Context, id int64) (*Details, error) {
	query := url.Values{}
	query.Set("append_to_response", "credits")

	var payload detailsResponse
	if err := c.get(ctx, "details", []string{"movie", strconv.FormatInt(id, 10)}, query, &payload); err != nil {
		return nil, err
	}
	return convertDetails(payload, c.imageBase), nil
}

// Trending lists trending movies for window ("day" or "week").
func (c *HTTPClient) Trending(ctx context.Context, window string, page int) (*Page, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))

	var payload listResponse
	if err := c.get(ctx, "trending", []string{"trending", "movie", window}, query, &payload); err != nil {
		return nil, err
	}
	return convertPage(payload, c.imageBase), nil
}

// Search lists movies whose title matches query.
func (c *HTTPClient) Search(ctx context.Context, query string, page int) (*Page, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))

	var payload listResponse
	if err := c.get(ctx, "search", []string{"search", "movie"}, params, &payload); err != nil {
		return nil, err
	}
	return convertPage(payload, c.imageBase), nil
}

func (c *HTTPClient) get(ctx context.Context, operation string, path []string, query url.Values, out interface{}) error {
	endpoint := c.baseURL.JoinPath(path...)
	query.Set("api_key", c.apiKey)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("tmdb %s: %w", operation, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			metrics.GatewayRequests.WithLabelValues(operation, "error").Inc()
			return fmt.Errorf("decode tmdb %s response: %w", operation, err)
		}
		metrics.GatewayRequests.WithLabelValues(operation, "ok").Inc()
		return nil
	case http.StatusNotFound:
		metrics.GatewayRequests.WithLabelValues(operation, "not_found").Inc()
		return ErrNotFound
	default:
		metrics.GatewayRequests.WithLabelValues(operation, "error").Inc()
		c.logger.Warn().Str("operation", operation).Int("status", resp.StatusCode).Msg("unexpected upstream status")
		return fmt.Errorf("tmdb %s: upstream returned %d", operation, resp.StatusCode)
	}
}
