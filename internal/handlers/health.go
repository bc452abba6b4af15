package handlers

import (
	"net/http"
	"time"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/platform/httpx"
	"github.com/hanko-field/bizdoc/internal/repositories"
)

// HealthHandlers serves the health endpoint from the dependency health repository.
type HealthHandlers struct {
	repo    repositories.HealthRepository
	now     func() time.Time
	started time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthRepository sets the repository whose report is served.
func WithHealthRepository(repo repositories.HealthRepository) HealthOption {
	return func(h *HealthHandlers) {
		h.repo = repo
	}
}

// WithHealthClock overrides the clock, primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.now = clock
		}
	}
}

// WithHealthStartedAt records when the process started.
func WithHealthStartedAt(started time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.started = started
	}
}

// NewHealthHandlers constructs health handlers. Without a repository the
// endpoint always reports ok.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.started.IsZero() {
		h.started = h.now()
	}
	return h
}

type healthResponse struct {
	Status      string                              `json:"status"`
	Version     string                              `json:"version,omitempty"`
	Uptime      string                              `json:"uptime"`
	GeneratedAt string                              `json:"generatedAt"`
	Checks      map[string]domain.SystemHealthCheck `json:"checks,omitempty"`
}

// Healthz reports liveness plus the status of configured dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().UTC()
	report := domain.SystemHealthReport{Status: domain.HealthStatusOK, GeneratedAt: now}
	if h.repo != nil {
		collected, err := h.repo.Collect(ctx)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("health_unavailable", err.Error(), http.StatusServiceUnavailable))
			return
		}
		report = collected
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = now
	}
	httpx.WriteJSON(w, status, healthResponse{
		Status:      report.Status,
		Version:     report.Version,
		Uptime:      now.Sub(h.started).Round(time.Second).String(),
		GeneratedAt: generated.UTC().Format(time.RFC3339),
		Checks:      report.Checks,
	})
}
