package chessdto

// PositionPayload is a 1-based square: row is the rank, col the file.
type PositionPayload struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// MovePayload carries a MAKE_MOVE request. Promotion is one of QUEEN, ROOK,
// BISHOP or KNIGHT and only meaningful for a pawn reaching the last rank.
type MovePayload struct {
	Start     PositionPayload `json:"start"`
	End       PositionPayload `json:"end"`
	Promotion string          `json:"promotion,omitempty"`
}
