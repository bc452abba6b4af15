package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hanko-field/bizdoc/internal/domain"
)

func TestDependencyHealthRepositoryCollectSuccess(t *testing.T) {
	checks := []DependencyCheck{
		{
			Name: "redis",
			Check: func(ctx context.Context) error {
				select {
				case <-time.After(5 * time.Millisecond):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
		{
			Name:  "drafts_dir",
			Check: func(context.Context) error { return nil },
		},
	}

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo := NewDependencyHealthRepository(checks,
		WithDependencyClock(func() time.Time { return now }),
		WithVersion("test"),
	)

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected status ok, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(report.Checks))
	}
	if report.Version != "test" {
		t.Fatalf("expected version test, got %q", report.Version)
	}
	if report.GeneratedAt != now {
		t.Fatalf("expected generatedAt %s, got %s", now, report.GeneratedAt)
	}
}

func TestDependencyHealthRepositoryCollectFailure(t *testing.T) {
	checks := []DependencyCheck{
		{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
		{Name: "drafts_dir", Check: func(context.Context) error { return nil }},
	}
	report, err := NewDependencyHealthRepository(checks).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", report.Status)
	}
	if got := report.Checks["redis"].Error; got != "connection refused" {
		t.Fatalf("expected redis error recorded, got %q", got)
	}
}

func TestDependencyHealthRepositoryTimeout(t *testing.T) {
	checks := []DependencyCheck{
		{
			Name:    "slow",
			Timeout: 5 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}
	report, err := NewDependencyHealthRepository(checks).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error status, got %s", report.Status)
	}
	if report.Checks["slow"].Detail != "timeout" {
		t.Fatalf("expected timeout detail, got %q", report.Checks["slow"].Detail)
	}
}

func TestDependencyHealthRepositoryRejectsUnnamedCheck(t *testing.T) {
	repo := NewDependencyHealthRepository([]DependencyCheck{{Check: func(context.Context) error { return nil }}})
	if _, err := repo.Collect(context.Background()); err == nil {
		t.Fatal("expected error for unnamed check")
	}
}

func TestDependencyHealthRepositoryEmptyIsOK(t *testing.T) {
	report, err := NewDependencyHealthRepository(nil).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok, got %s", report.Status)
	}
}
