package liveness

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"alarmsync/internal/domain"
	"alarmsync/internal/models"
)

// HTTPScheduler talks to the background alarm scheduler daemon over its
// local HTTP surface: GET /probe and POST /permission.
type HTTPScheduler struct {
	baseURL string
	client  *http.Client
}

func NewHTTPScheduler(baseURL string, timeout time.Duration) *HTTPScheduler {
	return &HTTPScheduler{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type probeResponse struct {
	Initialized    bool                          `json:"initialized"`
	ScheduledCount int                           `json:"scheduled_count"`
	Capabilities   models.BackgroundCapabilities `json:"capabilities"`
}

func (s *HTTPScheduler) Probe(ctx context.Context) (domain.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/probe", nil)
	if err != nil {
		return domain.ProbeResult{}, fmt.Errorf("build probe request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.ProbeResult{}, fmt.Errorf("probe scheduler: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ProbeResult{}, fmt.Errorf("probe scheduler: unexpected status %d", resp.StatusCode)
	}

	var body probeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.ProbeResult{}, fmt.Errorf("decode probe response: %w", err)
	}

	return domain.ProbeResult{
		Initialized:    body.Initialized,
		ScheduledCount: body.ScheduledCount,
		Capabilities:   body.Capabilities,
	}, nil
}

type permissionResponse struct {
	Decision models.PermissionState `json:"decision"`
}

func (s *HTTPScheduler) RequestPermission(ctx context.Context) (models.PermissionState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/permission", nil)
	if err != nil {
		return models.PermissionUnset, fmt.Errorf("build permission request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.PermissionUnset, fmt.Errorf("request permission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.PermissionUnset, fmt.Errorf("request permission: unexpected status %d", resp.StatusCode)
	}

	var body permissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.PermissionUnset, fmt.Errorf("decode permission response: %w", err)
	}

	switch body.Decision {
	case models.PermissionGranted, models.PermissionDenied:
		return body.Decision, nil
	default:
		return models.PermissionUnset, fmt.Errorf("unknown permission decision %q", body.Decision)
	}
}
