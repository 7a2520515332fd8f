package api

import (
	"net/http"

	"arc-framework/launchpad/internal/health"
	"arc-framework/launchpad/internal/launch"

	"github.com/gin-gonic/gin"
)

// launchStatus is the subset of *launch.Sequencer used by the handlers.
type launchStatus interface {
	LastReport() *launch.Report
	Launched() bool
}

// capabilityRegistry is the subset of *plugins.Registry used by the handlers.
type capabilityRegistry interface {
	Names() []string
	Probers() map[string]health.Prober
}

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	launch   launchStatus
	registry capabilityRegistry
	maps     health.Prober
}

// Health handles GET /health.
// It always returns 200: this is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mode":   "shallow",
	})
}

// DeepHealth handles GET /health/deep.
// It probes the maps SDK and every registered capability, returning 200 only
// when all of them are OK.
func (h *Handler) DeepHealth(c *gin.Context) {
	probers := make(map[string]health.Prober)
	for name, p := range h.registry.Probers() {
		probers[name] = p
	}
	if h.maps != nil {
		probers["maps"] = h.maps
	}

	probes := health.Check(c.Request.Context(), probers)

	status := "healthy"
	code := http.StatusOK
	if !health.AllOK(probes) {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":       status,
		"dependencies": probes,
	})
}

// Ready handles GET /ready.
// It returns 200 only after a launch completed with a true result.
func (h *Handler) Ready(c *gin.Context) {
	if h.launch.Launched() {
		c.JSON(http.StatusOK, gin.H{"ready": true})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
}

// LaunchReport handles GET /api/v1/launch.
func (h *Handler) LaunchReport(c *gin.Context) {
	report := h.launch.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "no launch recorded"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Plugins handles GET /api/v1/plugins.
func (h *Handler) Plugins(c *gin.Context) {
	names := h.registry.Names()
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"capabilities": names})
}
