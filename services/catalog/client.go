// Package catalog talks to the upstream movie catalog (TMDB v3) using a
// server-held bearer token.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"moviepicker/models"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"

	// maxBodyBytes bounds how much of an upstream reply is buffered.
	maxBodyBytes = 8 << 20
)

var ErrNotConfigured = errors.New("tmdb access token not configured")

// StatusError is returned when the catalog answers with a non-2xx status.
// Body holds the upstream payload so callers can pass it through.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb request failed: %d %s", e.Status, http.StatusText(e.Status))
}

// Response is an upstream reply kept verbatim for passthrough routes.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports whether the upstream status was 2xx.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Options configures a Client.
type Options struct {
	AccessToken       string
	BaseURL           string
	ImageBaseURL      string
	Language          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

// Client is a thin TMDB client. It never retries; a failed call is reported
// to the caller as-is.
type Client struct {
	token        string
	baseURL      string
	imageBaseURL string
	language     string
	httpc        *http.Client
	limiter      *rate.Limiter
}

func NewClient(opts Options) *Client {
	httpc := opts.HTTPClient
	if httpc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	imageBaseURL := strings.TrimRight(strings.TrimSpace(opts.ImageBaseURL), "/")
	if imageBaseURL == "" {
		imageBaseURL = DefaultImageBaseURL
	}
	language := strings.TrimSpace(opts.Language)
	if language == "" {
		language = "en-US"
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		token:        strings.TrimSpace(opts.AccessToken),
		baseURL:      baseURL,
		imageBaseURL: imageBaseURL,
		language:     language,
		httpc:        httpc,
		limiter:      rate.NewLimiter(limit, burst),
	}
}

func (c *Client) isConfigured() bool {
	return c != nil && c.token != ""
}

// DiscoverQuery holds the filters forwarded to /discover/movie. Page is kept
// as the caller supplied it; the catalog enforces its own bounds.
type DiscoverQuery struct {
	Genre    string
	Year     string
	Language string
	Page     string
}

func (q DiscoverQuery) values(language string) url.Values {
	v := url.Values{}
	v.Set("include_adult", "false")
	v.Set("include_video", "false")
	v.Set("language", language)
	v.Set("sort_by", "popularity.desc")
	page := strings.TrimSpace(q.Page)
	if page == "" {
		page = "1"
	}
	v.Set("page", page)
	if g := strings.TrimSpace(q.Genre); g != "" {
		v.Set("with_genres", g)
	}
	if y := strings.TrimSpace(q.Year); y != "" {
		v.Set("primary_release_year", y)
	}
	if l := strings.TrimSpace(q.Language); l != "" {
		v.Set("with_original_language", l)
	}
	return v
}

// DiscoverRaw forwards a discover query and returns the upstream reply
// untouched. An error is only returned when no reply was received.
func (c *Client) DiscoverRaw(ctx context.Context, q DiscoverQuery) (*Response, error) {
	return c.get(ctx, "discover/movie", q.values(c.language))
}

// Discover fetches and decodes one discover page.
func (c *Client) Discover(ctx context.Context, q DiscoverQuery) (*models.DiscoverPage, error) {
	var page models.DiscoverPage
	if err := c.getJSON(ctx, "discover/movie", q.values(c.language), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GenresRaw returns the /genre/movie/list reply untouched.
func (c *Client) GenresRaw(ctx context.Context) (*Response, error) {
	return c.get(ctx, "genre/movie/list", nil)
}

// Genres returns the movie genre list.
func (c *Client) Genres(ctx context.Context) ([]models.Genre, error) {
	var payload models.GenreList
	if err := c.getJSON(ctx, "genre/movie/list", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Genres, nil
}

// LanguagesRaw returns the /configuration/languages reply untouched.
func (c *Client) LanguagesRaw(ctx context.Context) (*Response, error) {
	return c.get(ctx, "configuration/languages", nil)
}

// Languages returns every language the catalog knows about.
func (c *Client) Languages(ctx context.Context) ([]models.Language, error) {
	var payload []models.Language
	if err := c.getJSON(ctx, "configuration/languages", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WatchProviders returns per-country availability for a movie.
func (c *Client) WatchProviders(ctx context.Context, movieID string) (*models.WatchProviders, error) {
	var payload models.WatchProviders
	if err := c.getJSON(ctx, path.Join("movie", movieID, "watch", "providers"), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ImageURL builds an image CDN URL, or "" when imagePath is empty.
func (c *Client) ImageURL(imagePath, size string) string {
	trimmed := strings.TrimSpace(imagePath)
	if trimmed == "" {
		return ""
	}
	base := DefaultImageBaseURL
	if c != nil {
		base = c.imageBaseURL
	}
	return fmt.Sprintf("%s/%s", base, path.Join(size, strings.TrimPrefix(trimmed, "/")))
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, v any) error {
	resp, err := c.get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{Status: resp.Status, Body: resp.Body}
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode tmdb %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (*Response, error) {
	if !c.isConfigured() {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tmdb rate limit wait: %w", err)
	}

	full, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		full += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Printf("[tmdb] GET %s failed: %v", endpoint, err)
		return nil, fmt.Errorf("tmdb %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read tmdb %s: %w", endpoint, err)
	}

	if resp.StatusCode >= 400 {
		log.Printf("[tmdb] GET %s returned %s", endpoint, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	return &Response{Status: resp.StatusCode, ContentType: contentType, Body: body}, nil
}
