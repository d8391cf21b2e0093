// Package routes provides HTTP route configurations.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gamepanel/internal/interfaces/http/handlers"
	agentHandlers "github.com/orris-inc/gamepanel/internal/interfaces/http/handlers/agent"
	"github.com/orris-inc/gamepanel/internal/interfaces/http/middleware"
)

// AgentHubRouteConfig contains dependencies for agent hub routes.
type AgentHubRouteConfig struct {
	HubHandler          *agentHandlers.HubHandler
	HealthHandler       *handlers.HealthHandler
	NodeTokenMiddleware *middleware.NodeTokenMiddleware
	// ConnectRateLimit is optional.
	ConnectRateLimit gin.HandlerFunc
}

// SetupAgentHubRoutes configures the agent WebSocket and health routes.
func SetupAgentHubRoutes(engine *gin.Engine, cfg *AgentHubRouteConfig) {
	engine.GET("/health", cfg.HealthHandler.Health)

	ws := engine.Group("/ws")
	{
		// GET /ws/agent (authenticated by node token)
		chain := []gin.HandlerFunc{}
		if cfg.ConnectRateLimit != nil {
			chain = append(chain, cfg.ConnectRateLimit)
		}
		chain = append(chain,
			cfg.NodeTokenMiddleware.RequireNodeToken(),
			cfg.HubHandler.AgentWS,
		)
		ws.GET("/agent", chain...)
	}
}
