// Package session tracks which live connections are attached to which game.
package session

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

// Role is the capacity a connection holds in a game.
type Role string

const (
	RoleWhite    Role = "WHITE"
	RoleBlack    Role = "BLACK"
	RoleObserver Role = "OBSERVER"
)

// RoleFor maps a seat color to its role.
func RoleFor(c chess.Color) Role {
	if c == chess.Black {
		return RoleBlack
	}
	return RoleWhite
}

// Color returns the seat color of a player role; ok is false for observers.
func (r Role) Color() (chess.Color, bool) {
	switch r {
	case RoleWhite:
		return chess.White, true
	case RoleBlack:
		return chess.Black, true
	}
	return chess.White, false
}

// ErrClosed is returned by Conn.Send once the transport has gone away.
var ErrClosed = errors.New("session: connection closed")

// Conn is one client transport handle. Send must not block: implementations
// queue the message and report an error when the handle is closed or saturated.
type Conn interface {
	ID() string
	Send(msg *chessdto.ServerMessage) error
	Close() error
}

// Connection is a registry entry.
type Connection struct {
	GameID   int
	Identity string
	Conn     Conn
	Role     Role
}

// Registry maps game ids to their attached connections. All methods are safe for
// concurrent use; sends happen outside the lock.
type Registry struct {
	mu     sync.RWMutex
	games  map[int]map[string]*Connection
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{games: make(map[int]map[string]*Connection), logger: logger}
}

// Add attaches conn to gameID. Re-adding the same handle replaces its identity and role.
func (r *Registry) Add(gameID int, identity string, conn Conn, role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.games[gameID]
	if !ok {
		set = make(map[string]*Connection)
		r.games[gameID] = set
	}
	set[conn.ID()] = &Connection{GameID: gameID, Identity: identity, Conn: conn, Role: role}
}

// Remove detaches conn from every game it is in.
func (r *Registry) Remove(conn Conn) {
	id := conn.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	for gameID, set := range r.games {
		delete(set, id)
		if len(set) == 0 {
			delete(r.games, gameID)
		}
	}
}

// RemoveFromGame detaches conn from one game and drops the game entry once empty.
func (r *Registry) RemoveFromGame(gameID int, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.games[gameID]
	if !ok {
		return
	}
	delete(set, conn.ID())
	if len(set) == 0 {
		delete(r.games, gameID)
	}
}

// Connections returns a snapshot of gameID's connections.
func (r *Registry) Connections(gameID int) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.games[gameID]
	out := make([]Connection, 0, len(set))
	for _, c := range set {
		out = append(out, *c)
	}
	return out
}

// GameCount is the number of games with at least one connection.
func (r *Registry) GameCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Broadcast sends msg to every connection on gameID.
func (r *Registry) Broadcast(gameID int, msg *chessdto.ServerMessage) {
	r.BroadcastExcept(gameID, "", msg)
}

// BroadcastExcept sends msg to every connection on gameID except the handle with
// id exceptID. A failed send detaches and closes that handle only.
func (r *Registry) BroadcastExcept(gameID int, exceptID string, msg *chessdto.ServerMessage) {
	targets := r.Connections(gameID)
	var failed []Conn
	for _, c := range targets {
		if exceptID != "" && c.Conn.ID() == exceptID {
			continue
		}
		if err := c.Conn.Send(msg); err != nil {
			r.logger.Warn("registry_send_failed",
				zap.Int("game_id", gameID),
				zap.String("conn_id", c.Conn.ID()),
				zap.String("identity", c.Identity),
				zap.Error(err),
			)
			failed = append(failed, c.Conn)
		}
	}
	for _, conn := range failed {
		r.Remove(conn)
		_ = conn.Close()
	}
}

// Send delivers msg to a single handle. On failure the handle is detached and closed.
func (r *Registry) Send(conn Conn, msg *chessdto.ServerMessage) error {
	if err := conn.Send(msg); err != nil {
		r.logger.Warn("registry_send_failed", zap.String("conn_id", conn.ID()), zap.Error(err))
		r.Remove(conn)
		_ = conn.Close()
		return err
	}
	return nil
}
