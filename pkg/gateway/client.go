package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-console/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-console/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-console/pkg/logging"
	"github.com/ekaya-inc/ekaya-console/pkg/retry"
)

// DefaultTimeout is the maximum time to wait for backend responses.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is logged.
const maxErrorBody = 512

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// FetchRetry applies to FetchProjects only. Nil uses retry.DefaultConfig.
	FetchRetry *retry.Config
}

// Client talks to the analysis backend over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	tokens     TokenSource
	fetchRetry *retry.Config
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient creates a new backend client.
func NewClient(opts Options, tokens TokenSource, logger *zap.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		tokens:     tokens,
		fetchRetry: opts.FetchRetry,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("gateway"),
	}
}

// StatusError is returned when the backend answers a read with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// Is matches apperrors.ErrUnauthorized for 401 and 403 answers.
func (e *StatusError) Is(target error) bool {
	return target == apperrors.ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// IsRetryable reports whether the status is worth retrying.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// retryConfig returns a copy of the fetch retry settings that logs each retry.
func (c *Client) retryConfig() *retry.Config {
	cfg := retry.DefaultConfig()
	if c.fetchRetry != nil {
		copied := *c.fetchRetry
		cfg = &copied
	}
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Debug("Retrying project fetch",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}
	return cfg
}

// FetchProjects loads the current user's projects. The backend wraps the list
// as {"response": [...]}; a bare array is accepted as well.
func (c *Client) FetchProjects(ctx context.Context) ([]any, error) {
	endpoint, err := buildURL(c.baseURL, nil, "api", "projects")
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	body, err := retry.DoIfRetryable(ctx, c.retryConfig(), func() ([]byte, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		c.logger.Warn("Failed to fetch projects",
			zap.String("url", logging.SanitizeURL(endpoint)),
			zap.String("error", logging.SanitizeError(err)))
		return []any{}, fmt.Errorf("failed to fetch projects: %w", err)
	}

	decoded, err := jsonutil.Decode(body)
	if err != nil {
		return []any{}, fmt.Errorf("failed to parse projects response: %w", err)
	}

	if items, ok := jsonutil.Array(decoded); ok {
		return items, nil
	}
	if obj, ok := jsonutil.Object(decoded); ok {
		if items, ok := jsonutil.Array(obj["response"]); ok {
			return items, nil
		}
	}

	c.logger.Debug("Projects response had no project list; treating as empty")
	return []any{}, nil
}

// CreateProject creates a project and its seed table.
func (c *Client) CreateProject(ctx context.Context, in CreateProjectInput) (Result, error) {
	return c.mutate(ctx, http.MethodPost, nil, in, "projects")
}

// UpdateProject renames a project.
func (c *Client) UpdateProject(ctx context.Context, patch ProjectPatch) (Result, error) {
	return c.mutate(ctx, http.MethodPatch, idQuery(patch.ID), patch, "projects")
}

// DeleteProject deletes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) (Result, error) {
	return c.mutate(ctx, http.MethodDelete, nil, idBody{ID: id}, "projects")
}

// CreateTable adds a table to a project.
func (c *Client) CreateTable(ctx context.Context, in CreateTableInput) (Result, error) {
	return c.mutate(ctx, http.MethodPost, nil, in, "tables")
}

// UpdateTable patches table fields.
func (c *Client) UpdateTable(ctx context.Context, patch TablePatch) (Result, error) {
	return c.mutate(ctx, http.MethodPatch, idQuery(patch.ID), patch, "tables")
}

// DeleteTable deletes a table.
func (c *Client) DeleteTable(ctx context.Context, id string) (Result, error) {
	return c.mutate(ctx, http.MethodDelete, nil, idBody{ID: id}, "tables")
}

// CreateVersion submits new SQL for a table.
func (c *Client) CreateVersion(ctx context.Context, in CreateVersionInput) (Result, error) {
	return c.mutate(ctx, http.MethodPost, nil, in, "versions")
}

// UpdateVersion patches version fields.
func (c *Client) UpdateVersion(ctx context.Context, patch VersionPatch) (Result, error) {
	return c.mutate(ctx, http.MethodPatch, idQuery(patch.ID), patch, "versions")
}

// DeleteVersion deletes a version.
func (c *Client) DeleteVersion(ctx context.Context, id string) (Result, error) {
	return c.mutate(ctx, http.MethodDelete, nil, idBody{ID: id}, "versions")
}

type idBody struct {
	ID string `json:"id"`
}

func idQuery(id string) url.Values {
	return url.Values{"id": []string{id}}
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: logging.TruncateString(string(body), maxErrorBody)}
	}
	return body, nil
}

// mutate sends one write. Non-2xx answers become a failed Result carrying the
// backend's message; only transport and encoding problems return an error.
func (c *Client) mutate(ctx context.Context, method string, query url.Values, payload any, resource string) (Result, error) {
	endpoint, err := buildURL(c.baseURL, query, "api", resource)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build URL: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return Result{}, err
	}

	c.logger.Debug("Sending mutation to backend",
		zap.String("method", method),
		zap.String("url", logging.SanitizeURL(endpoint)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	var result Result
	parseErr := json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Backend rejected mutation",
			zap.String("method", method),
			zap.String("resource", resource),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.SanitizeText(logging.TruncateString(string(body), maxErrorBody))))
		if parseErr != nil || len(result.Response) == 0 {
			return Failure(fmt.Sprintf("backend returned status %d", resp.StatusCode)), nil
		}
		result.Success = false
		return result, nil
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return Result{Success: true}, nil
	}
	if parseErr != nil {
		return Result{}, fmt.Errorf("failed to parse response: %w", parseErr)
	}
	return result, nil
}

// authorize attaches the bearer token and API key headers.
func (c *Client) authorize(req *http.Request) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(req.Context())
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// buildURL constructs a URL by parsing the base and joining path segments.
func buildURL(baseURL string, query url.Values, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{u.Path}, pathSegments...)
	u.Path = path.Join(segments...)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}
