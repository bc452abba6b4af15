package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hanko-field/bizdoc/internal/domain"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func TestHealthHandlersHealthz(t *testing.T) {
	start := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Second)

	tests := []struct {
		name       string
		repo       *stubHealthRepository
		wantStatus int
		wantBody   string
	}{
		{name: "no repository", wantStatus: http.StatusOK, wantBody: domain.HealthStatusOK},
		{
			name: "degraded dependency",
			repo: &stubHealthRepository{report: domain.SystemHealthReport{
				Status:  domain.HealthStatusDegraded,
				Version: "1.2.0",
				Checks:  map[string]domain.SystemHealthCheck{"redis": {Status: domain.HealthStatusDegraded}},
			}},
			wantStatus: http.StatusOK,
			wantBody:   domain.HealthStatusDegraded,
		},
		{
			name:       "failing dependency",
			repo:       &stubHealthRepository{report: domain.SystemHealthReport{Status: domain.HealthStatusError}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   domain.HealthStatusError,
		},
		{
			name:       "collect error",
			repo:       &stubHealthRepository{err: errors.New("boom")},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := []HealthOption{
				WithHealthClock(func() time.Time { return now }),
				WithHealthStartedAt(start),
			}
			if tc.repo != nil {
				opts = append(opts, WithHealthRepository(tc.repo))
			}
			h := NewHealthHandlers(opts...)

			rr := httptest.NewRecorder()
			h.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			expectStatus(t, rr, tc.wantStatus)
			var body map[string]any
			decodeBody(t, rr, &body)
			if tc.wantBody == "" {
				if body["error"] != "health_unavailable" {
					t.Fatalf("expected error envelope, got %v", body)
				}
				return
			}
			if body["status"] != tc.wantBody {
				t.Fatalf("expected status %q, got %v", tc.wantBody, body["status"])
			}
			if body["uptime"] != "1m30s" {
				t.Fatalf("expected uptime 1m30s, got %v", body["uptime"])
			}
		})
	}
}
