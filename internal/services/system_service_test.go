package services

import (
	"context"
	"testing"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
)

type stubHealthRepository struct {
	collectFunc func(ctx context.Context) (domain.SystemHealthReport, error)
}

func (s *stubHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	if s.collectFunc != nil {
		return s.collectFunc(ctx)
	}
	return domain.SystemHealthReport{}, nil
}

func TestSystemServiceHealthReportFillsBuildMetadata(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubHealthRepository{
		collectFunc: func(ctx context.Context) (domain.SystemHealthReport, error) {
			return domain.SystemHealthReport{
				Checks: map[string]domain.SystemHealthCheck{
					"firestore": {Status: domain.HealthStatusOK},
				},
			}, nil
		},
	}
	service, err := NewSystemService(SystemServiceDeps{
		HealthRepository: repo,
		Clock:            func() time.Time { return now },
		Build: BuildInfo{
			Version:     "1.4.0",
			CommitSHA:   "abc1234",
			Environment: "production",
			StartedAt:   started,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing system service: %v", err)
	}

	report, err := service.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Version != "1.4.0" || report.CommitSHA != "abc1234" || report.Environment != "production" {
		t.Fatalf("expected build metadata filled, got %+v", report)
	}
	if report.Uptime != 2*time.Hour {
		t.Fatalf("expected uptime 2h, got %v", report.Uptime)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected generated at %v, got %v", now, report.GeneratedAt)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok status, got %q", report.Status)
	}
}

func TestSystemServiceHealthReportDerivesStatus(t *testing.T) {
	cases := []struct {
		name   string
		checks map[string]domain.SystemHealthCheck
		want   string
	}{
		{
			name:   "no checks",
			checks: nil,
			want:   domain.HealthStatusOK,
		},
		{
			name: "degraded check",
			checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
				"redis":     {Status: domain.HealthStatusDegraded},
			},
			want: domain.HealthStatusDegraded,
		},
		{
			name: "error wins",
			checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusError},
				"redis":     {Status: domain.HealthStatusDegraded},
			},
			want: domain.HealthStatusError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubHealthRepository{
				collectFunc: func(ctx context.Context) (domain.SystemHealthReport, error) {
					return domain.SystemHealthReport{Checks: tc.checks}, nil
				},
			}
			service, err := NewSystemService(SystemServiceDeps{
				HealthRepository: repo,
				Clock:            func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
			})
			if err != nil {
				t.Fatalf("unexpected error constructing system service: %v", err)
			}

			report, err := service.HealthReport(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.Status != tc.want {
				t.Fatalf("expected status %q, got %q", tc.want, report.Status)
			}
		})
	}
}
