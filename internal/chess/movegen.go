package chess

type offset struct{ dr, dc int }

var (
	orthogonal = []offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal   = []offset{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	allDirs    = append(append([]offset{}, orthogonal...), diagonal...)
	knightHops = []offset{{2, 1}, {2, -1}, {-2, 1}, {-2, -1}, {1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
)

type generator func(b *Board, from Position, pc Piece) []Move

// generators is indexed by Kind. Sliders repeat along a direction; steppers take one hop.
var generators = [...]generator{
	King:   stepper(allDirs),
	Queen:  slider(allDirs),
	Rook:   slider(orthogonal),
	Bishop: slider(diagonal),
	Knight: stepper(knightHops),
	Pawn:   pawnMoves,
}

// PseudoLegalMoves returns the moves the piece on from can make by its movement
// pattern alone, ignoring whether they leave its own king in check.
// An empty square yields nil.
func PseudoLegalMoves(b *Board, from Position) []Move {
	pc, ok := b.Get(from)
	if !ok || int(pc.Kind) >= len(generators) || generators[pc.Kind] == nil {
		return nil
	}
	return generators[pc.Kind](b, from, pc)
}

func slider(dirs []offset) generator {
	return func(b *Board, from Position, pc Piece) []Move {
		var out []Move
		for _, d := range dirs {
			to := Pos(from.Row+d.dr, from.Col+d.dc)
			for to.Valid() {
				other, occupied := b.Get(to)
				if occupied {
					if other.Color != pc.Color {
						out = append(out, Move{Start: from, End: to})
					}
					break
				}
				out = append(out, Move{Start: from, End: to})
				to = Pos(to.Row+d.dr, to.Col+d.dc)
			}
		}
		return out
	}
}

func stepper(hops []offset) generator {
	return func(b *Board, from Position, pc Piece) []Move {
		var out []Move
		for _, d := range hops {
			to := Pos(from.Row+d.dr, from.Col+d.dc)
			if !to.Valid() {
				continue
			}
			if other, occupied := b.Get(to); occupied && other.Color == pc.Color {
				continue
			}
			out = append(out, Move{Start: from, End: to})
		}
		return out
	}
}

func pawnMoves(b *Board, from Position, pc Piece) []Move {
	dir, startRow, lastRow := 1, 2, 8
	if pc.Color == Black {
		dir, startRow, lastRow = -1, 7, 1
	}

	var out []Move
	add := func(to Position) {
		if to.Row == lastRow {
			for _, k := range promotionKinds {
				out = append(out, Move{Start: from, End: to, Promotion: k})
			}
			return
		}
		out = append(out, Move{Start: from, End: to})
	}

	one := Pos(from.Row+dir, from.Col)
	if _, blocked := b.Get(one); one.Valid() && !blocked {
		add(one)
		two := Pos(from.Row+2*dir, from.Col)
		if _, blocked := b.Get(two); from.Row == startRow && !blocked {
			add(two)
		}
	}

	for _, dc := range [...]int{-1, 1} {
		to := Pos(from.Row+dir, from.Col+dc)
		if other, occupied := b.Get(to); occupied && other.Color != pc.Color {
			add(to)
		}
	}
	return out
}
