package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/core/service"
	"github.com/yndnr/guardian/internal/infra/buildinfo"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 10 * time.Second

// Client talks to a running guardian daemon.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the daemon at server (host:port or URL).
func NewClient(server string) *Client {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is an error envelope returned by the daemon.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// envelope mirrors the daemon's response wrapper.
type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// Get performs a GET request and decodes the envelope's data into target.
func (c *Client) Get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "guardian-cli/"+buildinfo.Version)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", "cli-"+uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	return ParseResponse(resp, target)
}

// ParseResponse decodes a daemon response and closes its body.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
			apiErr.RequestID = env.RequestID
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if target == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("parse response data: %w", err)
	}
	return nil
}

// IsCode reports whether err is an APIError carrying the code of want.
func IsCode(err error, want *domain.DomainError) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == want.Code
}

// Health is the daemon's liveness report.
type Health struct {
	Status string    `json:"status"`
	State  string    `json:"state"`
	Uptime string    `json:"uptime"`
	Time   time.Time `json:"time"`
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.Get(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Status calls GET /status.
func (c *Client) Status(ctx context.Context) (*service.Status, error) {
	var st service.Status
	if err := c.Get(ctx, "/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Devices calls GET /devices.
func (c *Client) Devices(ctx context.Context) ([]domain.Descriptor, error) {
	var body struct {
		Devices []domain.Descriptor `json:"devices"`
	}
	if err := c.Get(ctx, "/devices", &body); err != nil {
		return nil, err
	}
	return body.Devices, nil
}

// Version calls GET /version.
func (c *Client) Version(ctx context.Context) (*buildinfo.Info, error) {
	var info buildinfo.Info
	if err := c.Get(ctx, "/version", &info); err != nil {
		return nil, err
	}
	return &info, nil
}
