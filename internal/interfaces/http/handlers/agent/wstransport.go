package agent

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	protocol "github.com/orris-inc/gamepanel/internal/shared/hubprotocol/agent"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var (
	errTransportClosed = errors.New("websocket transport closed")
	errSendBufferFull  = errors.New("websocket send buffer full")
)

// wsTransport is the hub's write side of one agent WebSocket. Messages are
// queued without blocking and written by writePump, the only writer of conn.
type wsTransport struct {
	conn   *websocket.Conn
	nodeID string
	send   chan *protocol.HubMessage

	closed    chan struct{}
	closeOnce sync.Once

	logger logger.Interface
}

func newWSTransport(conn *websocket.Conn, nodeID string, bufferSize int, log logger.Interface) *wsTransport {
	return &wsTransport{
		conn:   conn,
		nodeID: nodeID,
		send:   make(chan *protocol.HubMessage, bufferSize),
		closed: make(chan struct{}),
		logger: log,
	}
}

// Send queues msg. It fails instead of waiting when the queue is full.
func (t *wsTransport) Send(msg *protocol.HubMessage) error {
	select {
	case <-t.closed:
		return errTransportClosed
	default:
	}

	select {
	case t.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close stops the write pump, which flushes what is queued, sends a close
// frame and closes the socket.
func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
	return nil
}

func (t *wsTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case msg := <-t.send:
			if err := t.write(msg); err != nil {
				t.logger.Warnw("failed to write to agent websocket",
					"error", err,
					"node_id", t.nodeID,
				)
				t.Close()
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.Close()
				return
			}

		case <-t.closed:
			t.flush()
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			t.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (t *wsTransport) write(msg *protocol.HubMessage) error {
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteJSON(msg)
}

// flush writes whatever is still queued.
func (t *wsTransport) flush() {
	for {
		select {
		case msg := <-t.send:
			if err := t.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
