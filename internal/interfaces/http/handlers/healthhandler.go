// Package handlers contains the panel's plain HTTP handlers.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gamepanel/internal/shared/utils"
)

// AgentLister reports the nodes with a live agent connection.
type AgentLister interface {
	ConnectedAgents() []string
}

// Pinger checks a backing store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports process health.
type HealthHandler struct {
	agents AgentLister
	db     Pinger
}

// NewHealthHandler creates a HealthHandler. db may be nil.
func NewHealthHandler(agents AgentLister, db Pinger) *HealthHandler {
	return &HealthHandler{agents: agents, db: db}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status          string `json:"status"`
	Database        string `json:"database,omitempty"`
	ConnectedAgents int    `json:"connected_agents"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:          "ok",
		ConnectedAgents: len(h.agents.ConnectedAgents()),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			utils.SuccessResponse(c, http.StatusServiceUnavailable, "", resp)
			return
		}
		resp.Database = "ok"
	}

	utils.SuccessResponse(c, http.StatusOK, "", resp)
}
