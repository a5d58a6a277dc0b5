package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"RiskPulse/internal/scheduler"
	xhttp "RiskPulse/pkg/http"
)

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []HealthCheck
	jobs    func() map[string]scheduler.Health
	timeout time.Duration
}

// NewHealthHandler builds the handler. jobs may be nil.
func NewHealthHandler(jobs func() map[string]scheduler.Health, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, jobs: jobs, timeout: 3 * time.Second}
}

type healthReport struct {
	Status     string                      `json:"status"`
	Components map[string]string           `json:"components"`
	Jobs       map[string]scheduler.Health `json:"jobs,omitempty"`
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/health", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	rep := healthReport{Status: "ok", Components: make(map[string]string, len(h.checks))}
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			rep.Components[chk.Name] = err.Error()
			rep.Status = "degraded"
			continue
		}
		rep.Components[chk.Name] = "ok"
	}
	if h.jobs != nil {
		rep.Jobs = h.jobs()
	}

	status := http.StatusOK
	if rep.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	return xhttp.DataResponse(c, status, rep)
}
