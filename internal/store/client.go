// Package store implements the HTTP client for the PocketBase record store.
//
// All state the engine touches lives in remote keyed record collections;
// this package exposes the raw collection API (auth, list, get, create,
// patch, delete). Typed access lives in the knowledge package.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the unauthenticated handle to a record store deployment.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the store at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Session is a short-lived authenticated handle. It is acquired at the start
// of a turn and discarded at the end; callers never cache it across turns.
type Session struct {
	client *Client
	token  string
}

// Authenticate performs the admin credential exchange and returns a session.
func (c *Client) Authenticate(ctx context.Context, identity, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"identity": identity,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal auth request: %w", err)
	}

	url := c.baseURL + "/api/collections/_superusers/auth-with-password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Status: resp.StatusCode, Detail: string(respBody)}
	}

	var authResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return nil, fmt.Errorf("parse auth response: %w", err)
	}
	if authResp.Token == "" {
		return nil, &AuthError{Status: resp.StatusCode, Detail: "empty token"}
	}

	return &Session{client: c, token: authResp.Token}, nil
}

// do executes an authenticated request and decodes the JSON response into
// out when out is non-nil. 404 maps to NotFoundError, other non-2xx to
// RequestError.
func (s *Session) do(ctx context.Context, method, path, collection, id string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Collection: collection, ID: id}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &RequestError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
