package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheckResponse represents the health check response
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Env       string    `json:"env"`
}

// ReadinessCheckResponse represents the readiness check response
type ReadinessCheckResponse struct {
	Ready     bool             `json:"ready"`
	Checks    []ReadinessCheck `json:"checks"`
	Timestamp time.Time        `json:"timestamp"`
}

// ReadinessCheck represents a single readiness check
type ReadinessCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok" or "unconfigured"
}

// ReadinessProbe reports whether one outbound integration has its credentials
type ReadinessProbe struct {
	Name       string
	Configured func() bool
}

const (
	serviceName    = "workrelay"
	serviceVersion = "1.0.0"
)

// HandleHealth returns the liveness probe handler
func HandleHealth(env string) gin.HandlerFunc {
	startTime := time.Now()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthCheckResponse{
			Status:    "healthy",
			Service:   serviceName,
			Version:   serviceVersion,
			Uptime:    time.Since(startTime).String(),
			Timestamp: time.Now(),
			Env:       env,
		})
	}
}

// HandleReadiness returns the readiness probe handler.
// The relay is ready when at least one integration is configured.
func HandleReadiness(probes []ReadinessProbe) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := make([]ReadinessCheck, 0, len(probes))
		anyReady := false

		for _, p := range probes {
			check := ReadinessCheck{Name: p.Name, Status: "ok"}
			if !p.Configured() {
				check.Status = "unconfigured"
			} else {
				anyReady = true
			}
			checks = append(checks, check)
		}

		httpStatus := http.StatusOK
		if !anyReady {
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, ReadinessCheckResponse{
			Ready:     anyReady,
			Checks:    checks,
			Timestamp: time.Now(),
		})
	}
}
