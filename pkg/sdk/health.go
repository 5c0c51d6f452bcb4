package ragquery

import (
	"context"
	"fmt"
	"time"

	healthuc "github.com/kailas-cloud/ragquery/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component name to "ok"/"error"
}

// Health checks Redis and every configured provider that supports health checks.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)
	var err error
	if report.Status != healthuc.Healthy {
		err = fmt.Errorf("health: %s", report.Status)
	}
	c.obs.observe("health", start, err)

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
