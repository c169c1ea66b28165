// Package client is the CLI's small HTTP client for the book catalog API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crucial707/book-catalog/cmd/cli/config"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New returns a client for config.APIURL() without a token.
func New() *Client {
	return &Client{BaseURL: config.APIURL(), HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// Authenticated returns a client carrying the saved token.
func Authenticated() (*Client, error) {
	token, err := config.LoadToken()
	if err != nil {
		return nil, err
	}
	c := New()
	c.Token = token
	return c, nil
}

// JSON sends in as a JSON body (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) JSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	return c.Do(ctx, method, path, body, "application/json", out)
}

func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apiError(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}

func apiError(status int, body []byte) error {
	var e struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	msg := string(bytes.TrimSpace(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
		for k, v := range e.Fields {
			msg += fmt.Sprintf("; %s: %s", k, v)
		}
	}
	return &APIError{Status: status, Message: msg}
}
