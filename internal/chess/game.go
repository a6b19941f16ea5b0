package chess

import "fmt"

// Status summarises a side's situation on the current board.
type Status uint8

const (
	StatusNormal Status = iota
	StatusCheck
	StatusCheckmate
	StatusStalemate
)

func (s Status) String() string {
	switch s {
	case StatusCheck:
		return "check"
	case StatusCheckmate:
		return "checkmate"
	case StatusStalemate:
		return "stalemate"
	}
	return "normal"
}

// Terminal reports whether the status ends the game.
func (s Status) Terminal() bool { return s == StatusCheckmate || s == StatusStalemate }

// Game is the authoritative state of one chess game. It is not safe for concurrent
// use; the session layer serialises access per game.
type Game struct {
	board Board
	turn  Color
	over  bool
}

// NewGame returns a game in the standard starting position with White to move.
func NewGame() *Game {
	return &Game{board: StandardBoard(), turn: White}
}

// NewGameFromBoard starts a game from an arbitrary position.
func NewGameFromBoard(b Board, turn Color) *Game {
	return &Game{board: b, turn: turn}
}

// Board returns a copy of the current board.
func (g *Game) Board() Board { return g.board }

// Turn returns the side to move.
func (g *Game) Turn() Color { return g.turn }

// Over reports whether the game has ended.
func (g *Game) Over() bool { return g.over }

// End marks the game as finished. There is no way back.
func (g *Game) End() { g.over = true }

// PieceAt returns the piece on p.
func (g *Game) PieceAt(p Position) (Piece, bool) { return g.board.Get(p) }

// Clone returns an independent copy.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	cp := *g
	return &cp
}

// Equal reports whether two games have identical boards, turns and over flags.
func (g *Game) Equal(o *Game) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.board == o.board && g.turn == o.turn && g.over == o.over
}

// LegalMoves returns the moves the piece on from can make without leaving its own
// king in check. It returns nil for an empty square. Each candidate is tried on a
// scratch copy of the board.
func (g *Game) LegalMoves(from Position) ([]Move, error) {
	pc, ok := g.board.Get(from)
	if !ok {
		return nil, nil
	}
	var legal []Move
	for _, m := range PseudoLegalMoves(&g.board, from) {
		scratch := g.board
		scratch.move(m)
		attacked, err := inCheck(&scratch, pc.Color)
		if err != nil {
			return nil, err
		}
		if !attacked {
			legal = append(legal, m)
		}
	}
	return legal, nil
}

// AllLegalMoves is the union of LegalMoves over every piece of color c.
func (g *Game) AllLegalMoves(c Color) ([]Move, error) {
	var all []Move
	var err error
	g.board.Each(func(p Position, pc Piece) {
		if err != nil || pc.Color != c {
			return
		}
		var ms []Move
		ms, err = g.LegalMoves(p)
		all = append(all, ms...)
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// IsInCheck reports whether any opposing piece attacks c's king.
func (g *Game) IsInCheck(c Color) (bool, error) { return inCheck(&g.board, c) }

// IsInCheckmate is check with no legal move anywhere.
func (g *Game) IsInCheckmate(c Color) (bool, error) {
	st, err := g.Status(c)
	return st == StatusCheckmate, err
}

// IsInStalemate is no check and no legal move anywhere.
func (g *Game) IsInStalemate(c Color) (bool, error) {
	st, err := g.Status(c)
	return st == StatusStalemate, err
}

// Status evaluates check, checkmate and stalemate for c in a single pass.
func (g *Game) Status(c Color) (Status, error) {
	check, err := g.IsInCheck(c)
	if err != nil {
		return StatusNormal, err
	}
	moves, err := g.hasLegalMove(c)
	if err != nil {
		return StatusNormal, err
	}
	switch {
	case check && !moves:
		return StatusCheckmate, nil
	case check:
		return StatusCheck, nil
	case !moves:
		return StatusStalemate, nil
	}
	return StatusNormal, nil
}

func (g *Game) hasLegalMove(c Color) (bool, error) {
	for r := 1; r <= 8; r++ {
		for col := 1; col <= 8; col++ {
			p := Pos(r, col)
			if pc, ok := g.board.Get(p); !ok || pc.Color != c {
				continue
			}
			ms, err := g.LegalMoves(p)
			if err != nil {
				return false, err
			}
			if len(ms) > 0 {
				return true, nil
			}
		}
	}
	return false, nil
}

// ApplyMove validates m against the side to move and the legal move set, then
// plays it and passes the turn. On error the game is unchanged.
// Check, checkmate and stalemate are the caller's to evaluate afterwards.
func (g *Game) ApplyMove(m Move) error {
	if g.over {
		return &MoveError{Reason: ReasonGameOver, Move: m}
	}
	pc, ok := g.board.Get(m.Start)
	if !ok {
		return &MoveError{Reason: ReasonNoPiece, Move: m}
	}
	if pc.Color != g.turn {
		return &MoveError{Reason: ReasonWrongTurn, Move: m}
	}
	legal, err := g.LegalMoves(m.Start)
	if err != nil {
		return err
	}
	found := false
	for _, cand := range legal {
		if cand == m {
			found = true
			break
		}
	}
	if !found {
		return &MoveError{Reason: ReasonIllegalMove, Move: m}
	}
	g.board.move(m)
	g.turn = g.turn.Opponent()
	return nil
}

func inCheck(b *Board, c Color) (bool, error) {
	king, ok := b.KingPosition(c)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrKingMissing, c)
	}
	attacked := false
	b.Each(func(p Position, pc Piece) {
		if attacked || pc.Color == c {
			return
		}
		for _, m := range PseudoLegalMoves(b, p) {
			if m.End == king {
				attacked = true
				return
			}
		}
	})
	return attacked, nil
}
