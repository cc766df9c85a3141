// Package api provides a client for the hack-or-snooze story API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robertmeta/snooze-cli/model"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public hack-or-snooze API.
const DefaultBaseURL = "https://hack-or-snooze-v3.herokuapp.com"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 << 20

// Client performs calls against the story API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets a per-request timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithRateLimit limits outgoing requests to rps per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a new Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListParams controls story list pagination. Zero values use the API defaults.
type ListParams struct {
	Skip  int
	Limit int
}

// ListStories fetches stories, newest first.
func (c *Client) ListStories(ctx context.Context, p ListParams) ([]*model.Story, error) {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	var resp storiesResponse
	if err := c.do(ctx, "list stories", http.MethodGet, "/stories", q, nil, &resp); err != nil {
		return nil, err
	}
	return convertStories(resp.Stories), nil
}

// CreateStory submits a new story on behalf of the token's owner.
func (c *Client) CreateStory(ctx context.Context, token string, data model.StoryData) (*model.Story, error) {
	body := createStoryRequest{Token: token, Story: data}

	var resp storyResponse
	if err := c.do(ctx, "create story", http.MethodPost, "/stories", nil, body, &resp); err != nil {
		return nil, err
	}
	return convertStory(resp.Story), nil
}

// DeleteStory deletes a story owned by the token's owner.
func (c *Client) DeleteStory(ctx context.Context, token, storyID string) error {
	path := "/stories/" + url.PathEscape(storyID)
	return c.do(ctx, "delete story", http.MethodDelete, path, nil, tokenRequest{Token: token}, nil)
}

// Signup registers a new account and returns it with its issued token.
func (c *Client) Signup(ctx context.Context, username, password, name string) (*model.User, error) {
	var body credentialsRequest
	body.User.Username = username
	body.User.Password = password
	body.User.Name = name

	var resp userResponse
	if err := c.do(ctx, "signup", http.MethodPost, "/signup", nil, body, &resp); err != nil {
		return nil, err
	}
	return convertUser(resp.User, resp.Token), nil
}

// Login authenticates with username and password. Rejected credentials
// yield an *AuthError.
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	var body credentialsRequest
	body.User.Username = username
	body.User.Password = password

	var resp userResponse
	if err := c.do(ctx, "login", http.MethodPost, "/login", nil, body, &resp); err != nil {
		var re *RemoteError
		if errors.As(err, &re) && isCredentialRejection(re.StatusCode) {
			return nil, &AuthError{RemoteError: re}
		}
		return nil, err
	}
	return convertUser(resp.User, resp.Token), nil
}

// GetUser fetches a profile using an existing token. The returned user
// carries that same token.
func (c *Client) GetUser(ctx context.Context, token, username string) (*model.User, error) {
	q := url.Values{"token": {token}}
	path := "/users/" + url.PathEscape(username)

	var resp userResponse
	if err := c.do(ctx, "get user", http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}
	return convertUser(resp.User, token), nil
}

// AddFavorite marks a story as a favorite of username.
func (c *Client) AddFavorite(ctx context.Context, token, username, storyID string) error {
	return c.do(ctx, "add favorite", http.MethodPost, favoritePath(username, storyID), nil, tokenRequest{Token: token}, nil)
}

// RemoveFavorite removes a story from username's favorites.
func (c *Client) RemoveFavorite(ctx context.Context, token, username, storyID string) error {
	return c.do(ctx, "remove favorite", http.MethodDelete, favoritePath(username, storyID), nil, tokenRequest{Token: token}, nil)
}

func favoritePath(username, storyID string) string {
	return "/users/" + url.PathEscape(username) + "/favorites/" + url.PathEscape(storyID)
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. Every failure is returned as a *RemoteError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &RemoteError{Op: op, Err: err}
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &RemoteError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Err(err).
			Msg("request failed")
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")
	if err != nil {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		re := &RemoteError{Op: op, StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil {
			re.Title = er.Error.Title
			re.Message = er.Error.Message
		}
		return re
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
