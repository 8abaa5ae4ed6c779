// Package backend delivers queued operations to the authoritative server.
// The wire protocol is deliberately thin: one POST per operation, with the
// response status mapped onto the engine's transient/permanent taxonomy.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"alarmsync/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Routes maps an operation kind to the backend path it is delivered to.
// Kinds without a mapping fall back to a generic operations endpoint.
type Routes map[string]string

const defaultPath = "/api/v1/operations"

// HTTPClient implements domain.Backend over HTTP.
type HTTPClient struct {
	baseURL string
	routes  Routes
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewHTTPClient(baseURL string, routes Routes, timeout time.Duration, rps float64, burst int, logger *zerolog.Logger) *HTTPClient {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &HTTPClient{
		baseURL: baseURL,
		routes:  routes,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger.With().Str("component", "backend").Logger(),
	}
}

// Deliver posts the operation payload verbatim. Connection failures,
// timeouts and 5xx-class responses come back as TransientError; 4xx-class
// responses as PermanentError.
func (c *HTTPClient) Deliver(ctx context.Context, op models.Operation) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.Transient("rate limit wait", err)
		}
	}

	path, ok := c.routes[op.Kind]
	if !ok {
		path = defaultPath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(op.Payload))
	if err != nil {
		return models.Permanent("build request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operation-Id", op.ID)
	req.Header.Set("X-Operation-Kind", op.Kind)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Transient("deliver "+op.Kind, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return models.Transient("deliver "+op.Kind,
			fmt.Errorf("backend returned status %d", resp.StatusCode))
	default:
		return models.Permanent("deliver "+op.Kind, resp.StatusCode,
			fmt.Errorf("backend rejected operation"))
	}
}
