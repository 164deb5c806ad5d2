package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/cityconnect/internal/domain/model"
)

// ErrUnexpectedStatus is returned when the service answers with a status the
// call does not accept.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the dispatch HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
	return err
}

// PutTechnician upserts tech.
func (c *Client) PutTechnician(ctx context.Context, tech model.Technician) error {
	_, err := c.do(ctx, http.MethodPut, "/technicians/"+url.PathEscape(tech.ID), tech, nil, http.StatusOK)
	return err
}

// PostEvent submits one status event and reports whether it was a duplicate.
func (c *Client) PostEvent(ctx context.Context, ev model.StatusEvent) (bool, error) {
	status, err := c.do(ctx, http.MethodPost, "/events", ev, nil, http.StatusAccepted, http.StatusOK)
	return status == http.StatusOK, err
}

// Suggest posts one suggestion request.
func (c *Client) Suggest(ctx context.Context, req SuggestionRequest) (SuggestionResponse, error) {
	var resp SuggestionResponse
	_, err := c.do(ctx, http.MethodPost, "/suggestions", req, &resp, http.StatusOK)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, accept ...int) (int, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	ok := false
	for _, code := range accept {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
