package chess

import (
	"encoding/json"
	"fmt"
)

type pieceJSON struct {
	Color string `json:"color"`
	Type  string `json:"type"`
}

type placedJSON struct {
	Position Position  `json:"position"`
	Piece    pieceJSON `json:"piece"`
}

type gameJSON struct {
	Board    []placedJSON `json:"board"`
	TeamTurn string       `json:"teamTurn"`
	GameOver bool         `json:"gameOver"`
}

// MarshalJSON encodes the game as its occupied squares plus turn and over flag.
func (g *Game) MarshalJSON() ([]byte, error) {
	out := gameJSON{Board: make([]placedJSON, 0, 32), TeamTurn: g.turn.String(), GameOver: g.over}
	g.board.Each(func(p Position, pc Piece) {
		out.Board = append(out.Board, placedJSON{
			Position: p,
			Piece:    pieceJSON{Color: pc.Color.String(), Type: pc.Kind.String()},
		})
	})
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON. It rejects off-board positions,
// doubly occupied squares and unknown colors or kinds.
func (g *Game) UnmarshalJSON(data []byte) error {
	var in gameJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	turn, err := ParseColor(in.TeamTurn)
	if err != nil {
		return fmt.Errorf("decode game: %w", err)
	}
	var b Board
	for _, sq := range in.Board {
		if !sq.Position.Valid() {
			return fmt.Errorf("decode game: position %s off board", sq.Position)
		}
		if _, taken := b.Get(sq.Position); taken {
			return fmt.Errorf("decode game: square %s listed twice", sq.Position)
		}
		c, err := ParseColor(sq.Piece.Color)
		if err != nil {
			return fmt.Errorf("decode game: %w", err)
		}
		k, err := ParseKind(sq.Piece.Type)
		if err != nil {
			return fmt.Errorf("decode game: %w", err)
		}
		b.Set(sq.Position, Piece{Color: c, Kind: k})
	}
	*g = Game{board: b, turn: turn, over: in.GameOver}
	return nil
}
