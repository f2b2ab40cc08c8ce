// Package client is the Go SDK for the movies API.
//
// Every method accepts a context.Context. Error responses are parsed as RFC
// 9457 problem details into *APIError; a 404 also matches ErrNotFound.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.cscs.ch/openchami/chamicore-movies/pkg/types"
)

const moviesPath = "/movies/v1/movies"

// ErrNotFound matches API errors with status 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the movies API.
type APIError struct {
	StatusCode int
	Problem    types.ProblemDetail
}

func (e *APIError) Error() string {
	if e.Problem.Detail != "" {
		return fmt.Sprintf("movies api: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Problem.Detail)
	}
	return fmt.Sprintf("movies api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether target is ErrNotFound and e is a 404.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the root URL of the movies API (e.g., "http://localhost:27780").
	BaseURL string

	// Token is the Bearer token for authentication. If empty, requests are
	// sent without authorization.
	Token string

	// Timeout is the per-request timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// HTTPClient is an optional custom http.Client. If nil, a default is used.
	HTTPClient *http.Client
}

// Client is the typed HTTP SDK for the movies service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a new Client with the given configuration.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("client: parsing BaseURL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    hc,
	}, nil
}

// Create creates a new movie.
func (c *Client) Create(ctx context.Context, req types.CreateMovieRequest) (*types.Resource[types.Movie], error) {
	var result types.Resource[types.Movie]
	if err := c.do(ctx, http.MethodPost, moviesPath, req, &result); err != nil {
		return nil, fmt.Errorf("creating movie: %w", err)
	}
	return &result, nil
}

// Get retrieves a single movie by ID or slug.
func (c *Client) Get(ctx context.Context, idOrSlug string) (*types.Resource[types.Movie], error) {
	path := fmt.Sprintf("%s/%s", moviesPath, url.PathEscape(idOrSlug))

	var result types.Resource[types.Movie]
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("getting movie %q: %w", idOrSlug, err)
	}
	return &result, nil
}

// List retrieves every movie. Requires an admin token.
func (c *Client) List(ctx context.Context) (*types.ResourceList[types.Resource[types.Movie]], error) {
	var result types.ResourceList[types.Resource[types.Movie]]
	if err := c.do(ctx, http.MethodGet, moviesPath, nil, &result); err != nil {
		return nil, fmt.Errorf("listing movies: %w", err)
	}
	return &result, nil
}

// Update replaces an existing movie.
func (c *Client) Update(ctx context.Context, id uuid.UUID, req types.UpdateMovieRequest) (*types.Resource[types.Movie], error) {
	path := fmt.Sprintf("%s/%s", moviesPath, id)

	var result types.Resource[types.Movie]
	if err := c.do(ctx, http.MethodPut, path, req, &result); err != nil {
		return nil, fmt.Errorf("updating movie %s: %w", id, err)
	}
	return &result, nil
}

// Delete removes a movie by ID. Requires an admin token.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	path := fmt.Sprintf("%s/%s", moviesPath, id)

	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("deleting movie %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = json.Unmarshal(data, &apiErr.Problem)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
