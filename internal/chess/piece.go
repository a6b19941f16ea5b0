package chess

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "BLACK"
	}
	return "WHITE"
}

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// ParseColor accepts WHITE/BLACK in any case.
func ParseColor(s string) (Color, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WHITE":
		return White, nil
	case "BLACK":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

// Kind is a piece type. The zero value means "no piece".
type Kind uint8

const (
	NoKind Kind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

var kindNames = [...]string{
	NoKind: "",
	King:   "KING",
	Queen:  "QUEEN",
	Rook:   "ROOK",
	Bishop: "BISHOP",
	Knight: "KNIGHT",
	Pawn:   "PAWN",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind accepts the upper-case kind names (QUEEN, KNIGHT, ...) in any case.
func ParseKind(s string) (Kind, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for k := King; k <= Pawn; k++ {
		if kindNames[k] == want {
			return k, nil
		}
	}
	return NoKind, fmt.Errorf("unknown piece type %q", s)
}

// promotionKinds are the kinds a pawn may become on the last rank, in emission order.
var promotionKinds = [...]Kind{Queen, Rook, Bishop, Knight}

// IsPromotion reports whether k is a legal promotion target.
func (k Kind) IsPromotion() bool {
	for _, p := range promotionKinds {
		if p == k {
			return true
		}
	}
	return false
}

// uciLetter is the lower-case letter used in coordinate notation for promotions.
func (k Kind) uciLetter() string {
	switch k {
	case Queen:
		return "q"
	case Rook:
		return "r"
	case Bishop:
		return "b"
	case Knight:
		return "n"
	}
	return ""
}

// Piece is an immutable (color, kind) value. The zero Piece is an empty square.
type Piece struct {
	Color Color
	Kind  Kind
}

// IsZero reports whether p is the empty-square value.
func (p Piece) IsZero() bool { return p.Kind == NoKind }

func (p Piece) String() string {
	if p.IsZero() {
		return "EMPTY"
	}
	return p.Color.String() + " " + p.Kind.String()
}

// Position is a square with 1-based row (rank) and col (file).
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Pos is shorthand for Position{Row: row, Col: col}.
func Pos(row, col int) Position { return Position{Row: row, Col: col} }

// Valid reports whether both coordinates are in 1..8.
func (p Position) Valid() bool {
	return p.Row >= 1 && p.Row <= 8 && p.Col >= 1 && p.Col <= 8
}

// String renders the square in algebraic form, e.g. "e4".
func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	return string(rune('a'+p.Col-1)) + string(rune('0'+p.Row))
}

// ParseSquare parses an algebraic square such as "e4".
func ParseSquare(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	p := Position{Row: int(s[1] - '0'), Col: int(s[0]-'a') + 1}
	if !p.Valid() {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	return p, nil
}

// Move is a start/end pair with an optional promotion kind.
type Move struct {
	Start     Position
	End       Position
	Promotion Kind
}

// UCI renders the move in coordinate notation, e.g. "e2e4" or "e7e8q".
func (m Move) UCI() string {
	return m.Start.String() + m.End.String() + m.Promotion.uciLetter()
}

func (m Move) String() string { return m.UCI() }

// ParseUCI parses coordinate notation produced by Move.UCI.
func ParseUCI(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("invalid move %q", s)
	}
	start, err := ParseSquare(s[:2])
	if err != nil {
		return Move{}, err
	}
	end, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{Start: start, End: end}
	if len(s) == 5 {
		switch s[4] {
		case 'q':
			m.Promotion = Queen
		case 'r':
			m.Promotion = Rook
		case 'b':
			m.Promotion = Bishop
		case 'n':
			m.Promotion = Knight
		default:
			return Move{}, fmt.Errorf("invalid promotion in %q", s)
		}
	}
	return m, nil
}
