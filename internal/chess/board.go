package chess

// Board is an 8x8 grid of pieces. It is a plain value: assigning it copies every square,
// which is how scratch boards are made for legality checks.
type Board struct {
	squares [8][8]Piece
}

// NewBoard returns an empty board.
func NewBoard() Board { return Board{} }

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StandardBoard returns the initial chess setup. White occupies rows 1-2.
func StandardBoard() Board {
	var b Board
	for col := 1; col <= 8; col++ {
		b.Set(Pos(1, col), Piece{Color: White, Kind: backRank[col-1]})
		b.Set(Pos(2, col), Piece{Color: White, Kind: Pawn})
		b.Set(Pos(7, col), Piece{Color: Black, Kind: Pawn})
		b.Set(Pos(8, col), Piece{Color: Black, Kind: backRank[col-1]})
	}
	return b
}

// Get returns the piece on p. ok is false for an empty or off-board square.
func (b *Board) Get(p Position) (Piece, bool) {
	if !p.Valid() {
		return Piece{}, false
	}
	pc := b.squares[p.Row-1][p.Col-1]
	return pc, !pc.IsZero()
}

// Set places pc on p, replacing whatever was there. Off-board positions are ignored.
func (b *Board) Set(p Position, pc Piece) {
	if !p.Valid() {
		return
	}
	b.squares[p.Row-1][p.Col-1] = pc
}

// Clear empties p.
func (b *Board) Clear(p Position) { b.Set(p, Piece{}) }

// Each calls fn for every occupied square, rank 1 first, file a first.
func (b *Board) Each(fn func(Position, Piece)) {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if pc := b.squares[r][c]; !pc.IsZero() {
				fn(Pos(r+1, c+1), pc)
			}
		}
	}
}

// KingPosition finds the king of color c.
func (b *Board) KingPosition(c Color) (Position, bool) {
	for r := 0; r < 8; r++ {
		for col := 0; col < 8; col++ {
			if pc := b.squares[r][col]; pc.Kind == King && pc.Color == c {
				return Pos(r+1, col+1), true
			}
		}
	}
	return Position{}, false
}

// move relocates the piece on m.Start to m.End, promoting if requested.
// Legality is the caller's concern.
func (b *Board) move(m Move) {
	pc, _ := b.Get(m.Start)
	if m.Promotion != NoKind {
		pc = Piece{Color: pc.Color, Kind: m.Promotion}
	}
	b.Clear(m.Start)
	b.Set(m.End, pc)
}
