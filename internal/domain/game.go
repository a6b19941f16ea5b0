package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/park285/cheese-chess-server/internal/chess"
)

var (
	// ErrGameNotFound is returned by stores when no record has the requested id.
	ErrGameNotFound = errors.New("game not found")
	// ErrConflict means the stored record changed since it was read.
	ErrConflict = errors.New("game was modified concurrently")
	// ErrUnauthorized means an auth token did not resolve to an identity.
	ErrUnauthorized = errors.New("unauthorized")
)

// Outcome values recorded when a game ends.
const (
	OutcomeWhite = "white"
	OutcomeBlack = "black"
	OutcomeDraw  = "draw"
)

// Termination values recorded when a game ends.
const (
	TerminationCheckmate   = "checkmate"
	TerminationStalemate   = "stalemate"
	TerminationResignation = "resignation"
)

// GameRecord is the persisted unit: seats, display name and engine state.
// An empty username means the seat is vacant.
type GameRecord struct {
	ID            int         `json:"gameID"`
	WhiteUsername string      `json:"whiteUsername,omitempty"`
	BlackUsername string      `json:"blackUsername,omitempty"`
	Name          string      `json:"gameName"`
	Game          *chess.Game `json:"game"`
	Moves         []string    `json:"moves,omitempty"`
	Outcome       string      `json:"outcome,omitempty"`
	Termination   string      `json:"termination,omitempty"`
	Revision      int64       `json:"revision"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Clone deep-copies the record so callers can mutate it without touching the store's copy.
func (r *GameRecord) Clone() *GameRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Game = r.Game.Clone()
	if r.Moves != nil {
		cp.Moves = append([]string(nil), r.Moves...)
	}
	return &cp
}

// SeatOf returns the color username plays, if any. White wins when both seats match.
func (r *GameRecord) SeatOf(username string) (chess.Color, bool) {
	u := strings.TrimSpace(username)
	if u == "" {
		return chess.White, false
	}
	if r.WhiteUsername == u {
		return chess.White, true
	}
	if r.BlackUsername == u {
		return chess.Black, true
	}
	return chess.White, false
}

// PlayerOn returns the username seated on c ("" when vacant).
func (r *GameRecord) PlayerOn(c chess.Color) string {
	if c == chess.Black {
		return r.BlackUsername
	}
	return r.WhiteUsername
}

// Vacate empties c's seat.
func (r *GameRecord) Vacate(c chess.Color) {
	if c == chess.Black {
		r.BlackUsername = ""
		return
	}
	r.WhiteUsername = ""
}

// Release vacates every seat username holds and reports whether there was one.
func (r *GameRecord) Release(username string) bool {
	u := strings.TrimSpace(username)
	if u == "" {
		return false
	}
	released := false
	if r.WhiteUsername == u {
		r.WhiteUsername = ""
		released = true
	}
	if r.BlackUsername == u {
		r.BlackUsername = ""
		released = true
	}
	return released
}

// Finish ends the game and records how.
func (r *GameRecord) Finish(outcome, termination string) {
	r.Game.End()
	r.Outcome = outcome
	r.Termination = termination
}

// Identity is an authenticated user.
type Identity struct {
	Username string
	Token    string
}

// OutcomeFor converts a winning color into an Outcome value.
func OutcomeFor(winner chess.Color) string {
	if winner == chess.Black {
		return OutcomeBlack
	}
	return OutcomeWhite
}
