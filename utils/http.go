package utils

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"pricewatch/internal/document"
	"pricewatch/internal/types"
)

// HTTPClient provides HTTP functionality with rate limiting and retries
type HTTPClient struct {
	client  *http.Client
	config  *types.Config
	logger  types.Logger
	limiter *rate.Limiter
	robots  *RobotsAgent
}

// StatusError is returned for non-200 responses
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config *types.Config, logger types.Logger) *HTTPClient {
	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	limit := rate.Inf
	if config.RequestDelay > 0 {
		limit = rate.Every(config.RequestDelay)
	}

	h := &HTTPClient{
		client:  client,
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
	}
	if config.RespectRobots {
		h.robots = NewRobotsAgent(client, config.UserAgent, 30*time.Minute)
	}
	return h
}

// Get performs a GET request with rate limiting and retries
func (h *HTTPClient) Get(ctx context.Context, target string) ([]byte, error) {
	return h.do(ctx, target, htmlAccept, h.config.MaxRetries)
}

// GetJSON performs a GET request and decodes the JSON body into v
func (h *HTTPClient) GetJSON(ctx context.Context, target string, v interface{}) error {
	body, err := h.do(ctx, target, "application/json", h.config.MaxRetries)
	if err != nil {
		return err
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", target, err)
	}
	return nil
}

// Render fetches url once without executing scripts. Render hints are
// ignored and failures are left to the caller to retry.
func (h *HTTPClient) Render(ctx context.Context, target string, _ RenderOptions) (document.Document, error) {
	body, err := h.do(ctx, target, htmlAccept, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrRenderFailed, target, err)
	}
	return document.FromHTML(string(body), target)
}

const htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

func (h *HTTPClient) do(ctx context.Context, target, accept string, retries int) ([]byte, error) {
	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidURL, target)
	}
	if h.robots != nil && !h.robots.Allowed(ctx, parsed) {
		return nil, fmt.Errorf("%w: %s", types.ErrDisallowed, target)
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := h.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", h.config.UserAgent)
		req.Header.Set("Accept", accept)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
		req.Header.Set("Upgrade-Insecure-Requests", "1")

		h.logger.Debugf("Making request to %s (attempt %d/%d)", target, attempt+1, retries+1)

		body, err := h.fetch(req)
		if err == nil {
			h.logger.Debugf("Successfully retrieved %d bytes from %s", len(body), target)
			return body, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !retryable(statusErr.StatusCode) {
			return nil, err
		}
		h.logger.Warnf("Request to %s failed (attempt %d): %v", target, attempt+1, err)
	}

	return nil, fmt.Errorf("all retry attempts failed: %w", lastErr)
}

func (h *HTTPClient) fetch(req *http.Request) ([]byte, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return h.readBody(resp)
}

func (h *HTTPClient) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	limit := h.config.MaxBodyBytes
	if limit <= 0 {
		limit = types.DefaultConfig().MaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", limit)
	}
	return body, nil
}

// Client exposes the underlying http.Client
func (h *HTTPClient) Client() *http.Client {
	return h.client
}

// Close cleans up resources
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
