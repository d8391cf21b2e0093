// Package http wires the panel's HTTP surface.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gamepanel/internal/application/node/usecases"
	"github.com/orris-inc/gamepanel/internal/infrastructure/ratelimit"
	"github.com/orris-inc/gamepanel/internal/infrastructure/services"
	"github.com/orris-inc/gamepanel/internal/interfaces/http/handlers"
	agentHandlers "github.com/orris-inc/gamepanel/internal/interfaces/http/handlers/agent"
	"github.com/orris-inc/gamepanel/internal/interfaces/http/middleware"
	"github.com/orris-inc/gamepanel/internal/interfaces/http/routes"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

// RouterDeps contains what the router needs from the server command.
type RouterDeps struct {
	Hub            *services.AgentHub
	ValidateToken  *usecases.ValidateNodeTokenUseCase
	DB             handlers.Pinger
	AllowedOrigins []string
	// ConnectLimiter, when set, limits agent connection attempts per IP.
	ConnectLimiter ratelimit.RateLimiter
	Logger         logger.Interface
}

// Router represents the HTTP router configuration
type Router struct {
	engine *gin.Engine
}

// NewRouter builds the gin engine and registers every route.
func NewRouter(deps RouterDeps) *Router {
	engine := gin.New()
	engine.Use(
		middleware.Recovery(deps.Logger),
		middleware.CustomLogger(deps.Logger.Named("http")),
	)

	routeCfg := &routes.AgentHubRouteConfig{
		HubHandler:          agentHandlers.NewHubHandler(deps.Hub, deps.AllowedOrigins, deps.Logger.Named("agent-hub-ws")),
		HealthHandler:       handlers.NewHealthHandler(deps.Hub, deps.DB),
		NodeTokenMiddleware: middleware.NewNodeTokenMiddleware(deps.ValidateToken, deps.Logger),
	}
	if deps.ConnectLimiter != nil {
		routeCfg.ConnectRateLimit = middleware.RateLimitByIP(deps.ConnectLimiter, deps.Logger.Named("ratelimit"))
	}
	routes.SetupAgentHubRoutes(engine, routeCfg)

	return &Router{engine: engine}
}

// GetEngine returns the gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
