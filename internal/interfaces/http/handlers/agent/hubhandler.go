// Package agent provides the WebSocket endpoint game-server agents connect to.
package agent

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	domainagent "github.com/orris-inc/gamepanel/internal/domain/agent"
	"github.com/orris-inc/gamepanel/internal/infrastructure/services"
	"github.com/orris-inc/gamepanel/internal/interfaces/http/middleware"
	protocol "github.com/orris-inc/gamepanel/internal/shared/hubprotocol/agent"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
	"github.com/orris-inc/gamepanel/internal/shared/utils"
	"github.com/orris-inc/gamepanel/internal/shared/version"
)

// HubHandler accepts agent WebSocket connections and feeds them to the hub.
type HubHandler struct {
	hub      *services.AgentHub
	upgrader websocket.Upgrader
	logger   logger.Interface
}

// NewHubHandler creates a new HubHandler. Requests carrying an Origin header
// must match one of allowedOrigins; agents normally send none.
func NewHubHandler(hub *services.AgentHub, allowedOrigins []string, log logger.Interface) *HubHandler {
	return &HubHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: log,
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowedOrigins, origin)
	}
}

// AgentWS handles WebSocket connections from agents.
// GET /ws/agent
func (h *HubHandler) AgentWS(c *gin.Context) {
	nodeSID := c.GetString(middleware.NodeSIDKey)
	if nodeSID == "" {
		h.logger.Warnw("node_sid not found in context for hub ws", "ip", c.ClientIP())
		utils.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorw("failed to upgrade to websocket",
			"error", err,
			"node_id", nodeSID,
			"ip", c.ClientIP(),
		)
		return
	}

	cfg := h.hub.Config()
	conn.SetReadLimit(cfg.ReadLimit)

	info, err := h.handshake(conn, nodeSID)
	if err != nil {
		h.logger.Warnw("agent handshake rejected",
			"error", err,
			"node_id", nodeSID,
			"ip", c.ClientIP(),
		)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, closeText(err)))
		conn.Close()
		return
	}
	info.RemoteAddr = c.ClientIP()

	transport := newWSTransport(conn, nodeSID, cfg.SendBufferSize, h.logger)

	// The ack is queued before the node becomes ONLINE, so it precedes any command.
	ack := &protocol.HubMessage{
		Type:      protocol.MsgTypeRegisterAck,
		NodeID:    nodeSID,
		Timestamp: time.Now().Unix(),
		Data: &protocol.RegisterAckData{
			NodeID:            nodeSID,
			ProtocolVersion:   protocol.ProtocolVersion,
			HeartbeatInterval: int64(cfg.HeartbeatInterval / time.Second),
		},
	}
	if err := transport.Send(ack); err != nil {
		conn.Close()
		return
	}

	go transport.writePump()
	agentConn := h.hub.Register(nodeSID, info, transport)
	h.readPump(agentConn, conn, transport)
}

// handshake waits for the register message and checks it against the
// authenticated node.
func (h *HubHandler) handshake(conn *websocket.Conn, nodeSID string) (services.AgentInfo, error) {
	conn.SetReadDeadline(time.Now().Add(h.hub.Config().HandshakeTimeout))

	var msg protocol.InboundMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return services.AgentInfo{}, fmt.Errorf("read register message: %w", err)
	}
	if msg.Type != protocol.MsgTypeRegister {
		return services.AgentInfo{}, fmt.Errorf("expected %s message, got %q", protocol.MsgTypeRegister, msg.Type)
	}

	data, err := protocol.DecodeData[protocol.RegisterData](msg.Data)
	if err != nil {
		return services.AgentInfo{}, err
	}
	if data.NodeID != nodeSID {
		return services.AgentInfo{}, fmt.Errorf("node id %q does not match token", data.NodeID)
	}

	minVersion := h.hub.Config().MinProtocolVersion
	if !version.AtLeast(data.ProtocolVersion, minVersion) {
		return services.AgentInfo{}, fmt.Errorf("protocol version %q not supported (minimum %s)", data.ProtocolVersion, minVersion)
	}

	return services.AgentInfo{
		ProtocolVersion: data.ProtocolVersion,
		AgentVersion:    data.AgentVersion,
	}, nil
}

// readPump reads messages from the agent until the connection fails.
func (h *HubHandler) readPump(agentConn *services.AgentConn, conn *websocket.Conn, transport *wsTransport) {
	nodeID := agentConn.NodeID
	defer func() {
		h.hub.Unregister(agentConn, domainagent.ErrAgentDisconnected)
		transport.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warnw("agent hub websocket read error",
					"error", err,
					"node_id", nodeID,
				)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg protocol.InboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.logger.Warnw("failed to parse agent hub message",
				"error", err,
				"node_id", nodeID,
			)
			continue
		}

		h.dispatch(agentConn, &msg)
	}
}

func (h *HubHandler) dispatch(agentConn *services.AgentConn, msg *protocol.InboundMessage) {
	nodeID := agentConn.NodeID

	switch msg.Type {
	case protocol.MsgTypeHeartbeat:
		h.hub.HandleHeartbeat(agentConn)

	case protocol.MsgTypeCommandResult:
		data, err := protocol.DecodeData[protocol.CommandResultData](msg.Data)
		if err != nil || data.CommandID == "" {
			h.logger.Warnw("invalid command result",
				"error", err,
				"node_id", nodeID,
			)
			return
		}
		h.hub.HandleCommandResult(agentConn, data)

	case protocol.MsgTypeRegister:
		h.logger.Warnw("ignoring repeated register message", "node_id", nodeID)

	default:
		if h.hub.RouteAgentMessage(nodeID, msg.Type, msg.Data) {
			return
		}
		if msg.Type == protocol.MsgTypeEvent {
			h.logger.Infow("agent event received", "node_id", nodeID, "data", string(msg.Data))
			return
		}
		h.logger.Warnw("unhandled agent hub message type",
			"type", msg.Type,
			"node_id", nodeID,
		)
	}
}

// closeText fits err into a close frame, whose reason is limited to 123 bytes.
func closeText(err error) string {
	const maxCloseReason = 123
	text := strings.ToValidUTF8(err.Error(), "")
	if len(text) <= maxCloseReason {
		return text
	}
	text = text[:maxCloseReason]
	for !utf8.ValidString(text) {
		text = text[:len(text)-1]
	}
	return text
}
