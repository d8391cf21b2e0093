package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gamepanel/internal/application/node/usecases"
	"github.com/orris-inc/gamepanel/internal/shared/errors"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
	"github.com/orris-inc/gamepanel/internal/shared/utils"
)

// Context keys set by RequireNodeToken.
const (
	NodeIDKey   = "node_id"
	NodeSIDKey  = "node_sid"
	NodeNameKey = "node_name"
)

type ValidateNodeTokenExecutor interface {
	Execute(ctx context.Context, cmd usecases.ValidateNodeTokenCommand) (*usecases.ValidateNodeTokenResult, error)
}

type NodeTokenMiddleware struct {
	validateTokenUC ValidateNodeTokenExecutor
	logger          logger.Interface
}

func NewNodeTokenMiddleware(
	validateTokenUC ValidateNodeTokenExecutor,
	logger logger.Interface,
) *NodeTokenMiddleware {
	return &NodeTokenMiddleware{
		validateTokenUC: validateTokenUC,
		logger:          logger,
	}
}

// RequireNodeToken authenticates an agent by its node token, taken from the
// Authorization header (Bearer) or the token query parameter.
func (m *NodeTokenMiddleware) RequireNodeToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		result, err := m.validateTokenUC.Execute(c.Request.Context(), usecases.ValidateNodeTokenCommand{
			PlainToken: token,
			IPAddress:  c.ClientIP(),
		})
		if err != nil {
			if appErr := errors.GetAppError(err); appErr == nil || appErr.Type != errors.ErrorTypeUnauthorized {
				m.logger.Errorw("node token validation unavailable", "error", err, "ip", c.ClientIP())
				utils.ErrorResponse(c, http.StatusServiceUnavailable, "node authentication temporarily unavailable")
				c.Abort()
				return
			}
			m.logger.Warnw("node token validation failed", "error", err, "ip", c.ClientIP())
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid node token")
			c.Abort()
			return
		}

		c.Set(NodeIDKey, result.NodeID)
		c.Set(NodeSIDKey, result.NodeSID)
		c.Set(NodeNameKey, result.Name)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return strings.TrimSpace(token)
}
