package chess

import (
	"errors"
	"fmt"
)

// Reason classifies why a move was refused.
type Reason uint8

const (
	ReasonNoPiece Reason = iota + 1
	ReasonWrongTurn
	ReasonIllegalMove
	ReasonGameOver
)

func (r Reason) String() string {
	switch r {
	case ReasonNoPiece:
		return "no piece at start square"
	case ReasonWrongTurn:
		return "not your turn"
	case ReasonIllegalMove:
		return "illegal move"
	case ReasonGameOver:
		return "game is over"
	}
	return "unknown"
}

// MoveError is returned by Game.ApplyMove when a move is refused.
// errors.Is matches on Reason, so callers compare against ErrNoPiece and friends.
type MoveError struct {
	Reason Reason
	Move   Move
}

func (e *MoveError) Error() string {
	if e.Move == (Move{}) {
		return e.Reason.String()
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Move.UCI())
}

func (e *MoveError) Is(target error) bool {
	t, ok := target.(*MoveError)
	return ok && t.Reason == e.Reason
}

var (
	ErrNoPiece     = &MoveError{Reason: ReasonNoPiece}
	ErrWrongTurn   = &MoveError{Reason: ReasonWrongTurn}
	ErrIllegalMove = &MoveError{Reason: ReasonIllegalMove}
	ErrGameOver    = &MoveError{Reason: ReasonGameOver}
)

// ErrKingMissing means a board has no king for a side being evaluated.
// A game reached through legal play can never produce it.
var ErrKingMissing = errors.New("chess: king missing from board")
