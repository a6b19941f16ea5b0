package chess

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGameJSONRoundTrip(t *testing.T) {
	ended := NewGame()
	play(t, ended, "e2e4", "f7f6", "d2d4", "g7g5", "d1h5")
	ended.End()

	promo := NewGameFromBoard(NewBoard(), Black)
	promo.board.Set(sq("a8"), Piece{White, Knight})
	promo.board.Set(sq("e1"), Piece{White, King})
	promo.board.Set(sq("e8"), Piece{Black, King})

	for name, g := range map[string]*Game{"initial": NewGame(), "ended": ended, "sparse": promo} {
		raw, err := json.Marshal(g)
		if err != nil { t.Fatalf("%s: marshal: %v", name, err) }
		var back Game
		if err := json.Unmarshal(raw, &back); err != nil { t.Fatalf("%s: unmarshal: %v", name, err) }
		if !back.Equal(g) { t.Fatalf("%s: round trip mismatch\n%s", name, raw) }
	}
}

func TestGameJSONShape(t *testing.T) {
	raw, err := json.Marshal(NewGame())
	if err != nil { t.Fatalf("marshal: %v", err) }
	s := string(raw)
	for _, want := range []string{`"teamTurn":"WHITE"`, `"gameOver":false`, `"position":{"row":1,"col":5},"piece":{"color":"WHITE","type":"KING"}`} {
		if !strings.Contains(s, want) { t.Fatalf("missing %s in %s", want, s) }
	}
}

func TestGameJSONRejectsBadInput(t *testing.T) {
	bad := []string{
		`{"board":[],"teamTurn":"GREEN","gameOver":false}`,
		`{"board":[{"position":{"row":9,"col":1},"piece":{"color":"WHITE","type":"KING"}}],"teamTurn":"WHITE"}`,
		`{"board":[{"position":{"row":1,"col":1},"piece":{"color":"WHITE","type":"KING"}},{"position":{"row":1,"col":1},"piece":{"color":"BLACK","type":"KING"}}],"teamTurn":"WHITE"}`,
		`{"board":[{"position":{"row":1,"col":1},"piece":{"color":"WHITE","type":"DRAGON"}}],"teamTurn":"WHITE"}`,
		`[]`,
	}
	for _, in := range bad {
		var g Game
		if err := json.Unmarshal([]byte(in), &g); err == nil { t.Fatalf("expected error for %s", in) }
	}
}
