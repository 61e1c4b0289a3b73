package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"zerostress/internal/apierror"
)

// ZSClient talks JSON to the venue's external REST API (/api/Keys,
// /api/Payments, ...). No auth headers are attached. Transport failures and
// 5xx answers count against the circuit breaker and surface as
// apierror.ErrRemoteUnavailable; a 404 surfaces as apierror.ErrNotFound.
type ZSClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewZSClient(baseURL string, timeout time.Duration, cb *CircuitBreaker) *ZSClient {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &ZSClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cb:         cb,
	}
}

// Breaker exposes the client's circuit breaker (health endpoint, refresher).
func (c *ZSClient) Breaker() *CircuitBreaker { return c.cb }

func (c *ZSClient) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *ZSClient) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *ZSClient) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, in, out)
}

// Ping checks reachability with a cheap GET on the keys collection.
func (c *ZSClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/Keys", nil, nil)
}

func (c *ZSClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	// Errors that must not trip the breaker (4xx, decode) are kept apart.
	var clientErr error
	cbErr := c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			clientErr = fmt.Errorf("remote: create request: %w", err)
			return nil
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s %s returned %d", method, path, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			clientErr = fmt.Errorf("remote: %s %s: %w", method, path, apierror.ErrNotFound)
			return nil
		case resp.StatusCode >= 400:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			clientErr = fmt.Errorf("remote: %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
			return nil
		}

		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			clientErr = fmt.Errorf("remote: decode %s %s: %w", method, path, err)
		}
		return nil
	})
	if cbErr != nil {
		return fmt.Errorf("remote: %s %s: %v: %w", method, path, cbErr, apierror.ErrRemoteUnavailable)
	}
	return clientErr
}
