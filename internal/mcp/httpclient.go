package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/claude/mapty/internal/coordinator"
	"github.com/claude/mapty/internal/models"
)

// HTTPClient implements DataSource by calling the Mapty REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the tracker runs elsewhere (e.g. over Tailscale).
type HTTPClient struct {
	baseURL string
	h       *retryablehttp.Client
	once    *retryablehttp.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. Transport
// errors and 5xx responses are retried for reads and resets only; a workout
// submission is sent once, since the server may have recorded it before failing.
func NewHTTPClient(baseURL string, log *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		h:       newRetryClient(3, log),
		once:    newRetryClient(0, log),
	}
}

func newRetryClient(retryMax int, log *slog.Logger) *retryablehttp.Client {
	h := retryablehttp.NewClient()
	h.RetryMax = retryMax
	h.HTTPClient.Timeout = 30 * time.Second
	h.Logger = nil
	if log != nil {
		h.Logger = log
	}
	h.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return h
}

// do sends a JSON request through the retrying client.
func (c *HTTPClient) do(ctx context.Context, method, path string, in any) (int, []byte, error) {
	return c.send(ctx, c.h, method, path, in)
}

// send returns the status and body. Non-2xx statuses are returned to the
// caller, not turned into errors.
func (c *HTTPClient) send(ctx context.Context, h *retryablehttp.Client, method, path string, in any) (int, []byte, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("httpclient: encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: read body: %w", err)
	}
	return resp.StatusCode, data, nil
}

func unexpected(path string, status int, body []byte) error {
	return fmt.Errorf("httpclient: %s returned %d: %s", path, status, bytes.TrimSpace(body))
}

func (c *HTTPClient) ListWorkouts(ctx context.Context) ([]models.Record, error) {
	const path = "/api/v1/workouts"
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, unexpected(path, status, body)
	}

	var records []models.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return records, nil
}

func (c *HTTPClient) GetWorkout(ctx context.Context, id string) (models.Record, error) {
	path := "/api/v1/workouts/" + url.PathEscape(id)
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return models.Record{}, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return models.Record{}, ErrNotFound
	default:
		return models.Record{}, unexpected(path, status, body)
	}

	var record models.Record
	if err := json.Unmarshal(body, &record); err != nil {
		return models.Record{}, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return record, nil
}

type logRequest struct {
	coordinator.FormInput
	Coords models.Coordinates `json:"coords"`
}

// LogWorkout posts a one-step submission. A 422 comes back as
// *coordinator.ValidationError.
func (c *HTTPClient) LogWorkout(ctx context.Context, at models.Coordinates, in coordinator.FormInput) (models.Record, error) {
	const path = "/api/v1/workouts"
	status, body, err := c.send(ctx, c.once, http.MethodPost, path, logRequest{FormInput: in, Coords: at})
	if err != nil {
		return models.Record{}, err
	}
	switch status {
	case http.StatusCreated:
	case http.StatusUnprocessableEntity:
		var v struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return models.Record{}, fmt.Errorf("httpclient: decode validation error: %w", err)
		}
		return models.Record{}, &coordinator.ValidationError{Reason: v.Reason, Message: v.Error}
	default:
		return models.Record{}, unexpected(path, status, body)
	}

	var record models.Record
	if err := json.Unmarshal(body, &record); err != nil {
		return models.Record{}, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return record, nil
}

func (c *HTTPClient) ResetWorkouts(ctx context.Context, confirm bool) (bool, error) {
	const path = "/api/v1/reset"
	status, body, err := c.do(ctx, http.MethodPost, path, map[string]bool{"confirm": confirm})
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, unexpected(path, status, body)
	}

	var v struct {
		Reset bool `json:"reset"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return false, fmt.Errorf("httpclient: decode reset: %w", err)
	}
	return v.Reset, nil
}
