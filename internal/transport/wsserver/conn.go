package wsserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-chess-server/internal/session"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

var errQueueFull = errors.New("wsserver: send queue full")

// wsConn implements session.Conn. Send only enqueues; writeLoop owns the socket's
// write side.
type wsConn struct {
	id     string
	ws     *websocket.Conn
	out    chan *chessdto.ServerMessage
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger

	writeTimeout time.Duration
	pingInterval time.Duration
}

func newWSConn(ws *websocket.Conn, opts Options) *wsConn {
	return &wsConn{
		id:           uuid.NewString(),
		ws:           ws,
		out:          make(chan *chessdto.ServerMessage, opts.SendQueue),
		done:         make(chan struct{}),
		logger:       opts.Logger,
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(msg *chessdto.ServerMessage) error {
	select {
	case <-c.done:
		return session.ErrClosed
	default:
	}
	select {
	case c.out <- msg:
		return nil
	case <-c.done:
		return session.ErrClosed
	default:
		return errQueueFull
	}
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *wsConn) writeLoop(ctx context.Context) {
	ping := time.NewTicker(c.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			_ = c.ws.Close(websocket.StatusGoingAway, "connection closed")
			return
		case msg := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := wsjson.Write(wctx, c.ws, msg)
			cancel()
			if err != nil {
				c.logger.Warn("ws_write_error", zap.String("conn_id", c.id), zap.Error(err))
				_ = c.Close()
				_ = c.ws.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				c.logger.Debug("ws_ping_error", zap.String("conn_id", c.id), zap.Error(err))
				_ = c.Close()
				_ = c.ws.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}
