package wrike

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL points at the EU cluster; workspaces on other clusters
	// override it through configuration.
	DefaultBaseURL = "https://app-eu.wrike.com/api/v4"

	defaultTimeout = 10 * time.Second
)

var (
	// ErrInvalidToken is returned on HTTP 401. The access token is wrong or
	// expired and no retry will help until it is rotated.
	ErrInvalidToken = errors.New("wrike access token is invalid or expired")

	// ErrForbidden is returned on HTTP 403, typically a folder the token has
	// no access to.
	ErrForbidden = errors.New("access denied by wrike")
)

// APIError carries a non-2xx Wrike response that is neither 401 nor 403.
type APIError struct {
	Status      int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("wrike api error: status %d", e.Status)
	}
	return fmt.Sprintf("wrike api error: status %d: %s", e.Status, e.Description)
}

// Client is a thin Wrike REST v4 client with bearer authentication. All
// calls honor the context and the configured request timeout.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client

	// Workspace custom-field ids used when filing tasks. Empty ids disable
	// the corresponding field.
	assigneeFieldID    string
	descriptionFieldID string
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

func WithCustomFields(assigneeFieldID, descriptionFieldID string) Option {
	return func(c *Client) {
		c.assigneeFieldID = assigneeFieldID
		c.descriptionFieldID = descriptionFieldID
	}
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the envelope Wrike wraps every payload in.
type apiResponse struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type apiErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"errorDescription"`
}

// do issues one request and decodes the data array into out when out is
// non-nil. Status codes map to the package's typed errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("wrike request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return ErrInvalidToken
		case http.StatusForbidden:
			return ErrForbidden
		}
		var apiErr apiErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		desc := apiErr.ErrorDescription
		if desc == "" {
			desc = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Description: desc}
	}

	if out == nil {
		return nil
	}
	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode wrike response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode wrike response data: %w", err)
	}
	return nil
}
