// Package wsserver exposes the dispatcher over WebSocket. Each socket is one
// session.Conn with its own bounded outbound queue and writer goroutine.
package wsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-chess-server/internal/session"
)

// Handler consumes inbound frames. *dispatch.Dispatcher satisfies it.
type Handler interface {
	Handle(ctx context.Context, conn session.Conn, raw []byte) error
	Disconnect(conn session.Conn)
}

type Options struct {
	Path           string
	AllowedOrigins []string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	SendQueue      int
	ReadLimit      int64
	Logger         *zap.Logger
}

func (o *Options) defaults() {
	if o.Path == "" {
		o.Path = "/ws"
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.SendQueue <= 0 {
		o.SendQueue = 64
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 << 10
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type Server struct {
	handler Handler
	opts    Options
	logger  *zap.Logger

	mu     sync.Mutex
	conns  map[string]*wsConn
	closed bool
	wg     sync.WaitGroup
}

func New(handler Handler, opts Options) *Server {
	opts.defaults()
	return &Server{
		handler: handler,
		opts:    opts,
		logger:  opts.Logger,
		conns:   make(map[string]*wsConn),
	}
}

// Router mounts the socket endpoint and /healthz.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.health)
	r.Get(s.opts.Path, s.serveWS)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": s.ConnCount(),
	})
}

// ConnCount is the number of open sockets.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(c *wsConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c.id] = c
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *wsConn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.opts.AllowedOrigins})
	if err != nil {
		s.logger.Warn("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	ws.SetReadLimit(s.opts.ReadLimit)

	conn := newWSConn(ws, s.opts)
	if !s.track(conn) {
		_ = ws.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.untrack(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		conn.writeLoop(ctx)
	}()

	s.logger.Debug("ws_open", zap.String("conn_id", conn.id), zap.String("remote", r.RemoteAddr))
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			s.logger.Debug("ws_read_end", zap.String("conn_id", conn.id), zap.Error(err))
			break
		}
		_ = s.handler.Handle(ctx, conn, data)
	}

	s.handler.Disconnect(conn)
	_ = conn.Close()
	cancel()
	<-writerDone
	_ = ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Debug("ws_closed", zap.String("conn_id", conn.id))
}

// Shutdown closes every socket and waits for their handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*wsConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
