// Package wsclient is a reconnecting WebSocket client for the chess server.
// CONNECT commands sent through it are replayed after every reconnect so the
// server re-attaches the socket to its games.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "disconnected"
}

// ErrNotConnected is returned by Send while no socket is up.
var ErrNotConnected = errors.New("wsclient: not connected")

type (
	MessageCallback func(msg *chessdto.ServerMessage)
	StateCallback   func(state State)
	// HeaderProvider injects headers into each handshake.
	HeaderProvider func() map[string]string
)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

type Client struct {
	url string

	conn       *websocket.Conn
	connCancel context.CancelFunc
	connM      sync.RWMutex

	state  State
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	joined  map[int]chessdto.Command
	joinedM sync.Mutex

	maxReconnectAttempts int
	pingInterval         time.Duration
	dialTimeout          time.Duration
	reconnecting         atomic.Bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
	logger         *zap.Logger
}

type Option func(*Client)

func WithMaxReconnectAttempts(n int) Option {
	return func(c *Client) { c.maxReconnectAttempts = n }
}

func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headerProvider = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		url:                  url,
		state:                StateDisconnected,
		joined:               make(map[int]chessdto.Command),
		maxReconnectAttempts: 5,
		pingInterval:         30 * time.Second,
		dialTimeout:          10 * time.Second,
		stopCh:               make(chan struct{}),
		logger:               zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	return c
}

func (c *Client) State() State {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Client) Connect(ctx context.Context) error {
	if s := c.State(); s == StateConnected || s == StateConnecting {
		return nil
	}
	c.setState(StateConnecting)
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateFailed)
		c.scheduleReconnect()
		return err
	}
	c.attach(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(),
	})
	if err != nil {
		return nil, fmt.Errorf("wsclient: dial %s: %w", c.url, err)
	}
	return conn, nil
}

func (c *Client) attach(conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(c.rootCtx)
	c.connM.Lock()
	c.conn = conn
	c.connCancel = cancel
	c.connM.Unlock()
	c.setState(StateConnected)

	c.wg.Add(2)
	go c.listen(connCtx, conn)
	go c.pingLoop(connCtx, conn)
}

func (c *Client) current() *websocket.Conn {
	c.connM.RLock()
	defer c.connM.RUnlock()
	return c.conn
}

// drop closes conn and clears it if it is still the current socket.
func (c *Client) drop(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	c.connM.Lock()
	if c.conn == conn {
		c.conn = nil
		if c.connCancel != nil {
			c.connCancel()
			c.connCancel = nil
		}
	}
	c.connM.Unlock()
	_ = conn.Close(code, reason)
}

func (c *Client) lost(conn *websocket.Conn, reason string) {
	if c.isStopping() {
		return
	}
	c.logger.Warn("wsclient_connection_lost", zap.String("url", c.url), zap.String("reason", reason))
	c.drop(conn, websocket.StatusGoingAway, reason)
	c.setState(StateDisconnected)
	c.scheduleReconnect()
}

func (c *Client) listen(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var msg chessdto.ServerMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if c.isStopping() || ctx.Err() != nil {
				return
			}
			c.lost(conn, "read failure")
			return
		}

		c.cbM.RLock()
		callbacks := make([]callbackEntry, len(c.msgCbs))
		copy(callbacks, c.msgCbs)
		c.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(&msg)
			}
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				c.lost(conn, "ping failure")
				return
			}
		}
	}
}

func (c *Client) scheduleReconnect() {
	if c.maxReconnectAttempts <= 0 || c.isStopping() {
		return
	}
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	c.setState(StateReconnecting)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.reconnecting.Store(false)
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			conn, err := c.dial(c.rootCtx)
			if err != nil {
				c.logger.Debug("wsclient_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			c.attach(conn)
			c.replay(conn)
			return
		}
		c.setState(StateFailed)
	}()
}

// replay re-sends every remembered CONNECT on a fresh socket.
func (c *Client) replay(conn *websocket.Conn) {
	c.joinedM.Lock()
	ids := make([]int, 0, len(c.joined))
	for id := range c.joined {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	cmds := make([]chessdto.Command, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, c.joined[id])
	}
	c.joinedM.Unlock()

	for i := range cmds {
		ctx, cancel := context.WithTimeout(c.rootCtx, c.dialTimeout)
		err := wsjson.Write(ctx, conn, &cmds[i])
		cancel()
		if err != nil {
			c.logger.Warn("wsclient_replay_failed", zap.Int("game_id", cmds[i].GameID), zap.Error(err))
			return
		}
	}
	if len(cmds) > 0 {
		c.logger.Info("wsclient_replayed", zap.Int("games", len(cmds)))
	}
}

func (c *Client) remember(cmd *chessdto.Command) {
	c.joinedM.Lock()
	defer c.joinedM.Unlock()
	switch cmd.CommandType {
	case chessdto.CommandConnect:
		c.joined[cmd.GameID] = *cmd
	case chessdto.CommandLeave:
		delete(c.joined, cmd.GameID)
	}
}

// Send writes cmd to the current socket.
func (c *Client) Send(ctx context.Context, cmd *chessdto.Command) error {
	conn := c.current()
	if conn == nil || c.State() != StateConnected {
		return ErrNotConnected
	}
	if err := wsjson.Write(ctx, conn, cmd); err != nil {
		return fmt.Errorf("wsclient: send %s: %w", cmd.CommandType, err)
	}
	c.remember(cmd)
	return nil
}

func (c *Client) OnMessage(cb MessageCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextCbID++
	c.msgCbs = append(c.msgCbs, callbackEntry{id: c.nextCbID, callback: cb})
	return c.nextCbID
}

func (c *Client) RemoveMessageCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, cb := range c.msgCbs {
		if cb.id == id {
			c.msgCbs = append(c.msgCbs[:i], c.msgCbs[i+1:]...)
			break
		}
	}
}

func (c *Client) OnStateChange(cb StateCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextCbID++
	c.stateCbs = append(c.stateCbs, stateCallbackEntry{id: c.nextCbID, callback: cb})
	return c.nextCbID
}

func (c *Client) RemoveStateCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, cb := range c.stateCbs {
		if cb.id == id {
			c.stateCbs = append(c.stateCbs[:i], c.stateCbs[i+1:]...)
			break
		}
	}
}

func (c *Client) setState(state State) {
	c.stateM.Lock()
	c.state = state
	c.stateM.Unlock()

	c.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(c.stateCbs))
	copy(callbacks, c.stateCbs)
	c.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if conn := c.current(); conn != nil {
		c.drop(conn, websocket.StatusNormalClosure, "close")
	}
	c.rootCancel()
	c.setState(StateDisconnected)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Client) buildHeaders() http.Header {
	hdr := http.Header{}
	if c.headerProvider == nil {
		return hdr
	}
	for k, v := range c.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}
