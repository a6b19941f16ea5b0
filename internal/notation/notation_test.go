package notation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSANFromStart(t *testing.T) {
	san, err := SAN(nil, "e2e4")
	if err != nil { t.Fatalf("SAN: %v", err) }
	if san != "e4" { t.Fatalf("expected e4, got %q", san) }

	san, err = SAN([]string{"e2e4", "e7e5"}, "g1f3")
	if err != nil { t.Fatalf("SAN: %v", err) }
	if san != "Nf3" { t.Fatalf("expected Nf3, got %q", san) }
}

func TestSANMateHasQueenPrefix(t *testing.T) {
	san, err := SAN([]string{"e2e4", "f7f6", "d2d4", "g7g5"}, "d1h5")
	if err != nil { t.Fatalf("SAN: %v", err) }
	if !strings.HasPrefix(san, "Qh5") { t.Fatalf("unexpected SAN %q", san) }
}

func TestReplayFailure(t *testing.T) {
	if _, err := FEN([]string{"e2e4", "zzzz"}); !errors.Is(err, ErrReplay) { t.Fatalf("expected ErrReplay, got %v", err) }
	if _, err := SAN(nil, "x9"); !errors.Is(err, ErrReplay) { t.Fatalf("expected ErrReplay, got %v", err) }
	if _, err := SAN(nil, "b5b6"); !errors.Is(err, ErrReplay) { t.Fatalf("empty start square should not render, got %v", err) }
}

func TestFENAfterOpening(t *testing.T) {
	fen, err := FEN([]string{"e2e4"})
	if err != nil { t.Fatalf("FEN: %v", err) }
	if !strings.HasPrefix(fen, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b") { t.Fatalf("unexpected FEN %q", fen) }
}

func TestSANListKeepsLength(t *testing.T) {
	got := SANList([]string{"e2e4", "e7e5", "zzzz", "g1f3"})
	if len(got) != 4 { t.Fatalf("expected 4 entries, got %v", got) }
	if got[0] != "e4" || got[1] != "e5" { t.Fatalf("unexpected SAN %v", got) }
	if got[2] != "zzzz" || got[3] != "g1f3" { t.Fatalf("entries after a broken ply should stay coordinate: %v", got) }
}

func TestPGN(t *testing.T) {
	pgn := PGN(Header{
		White:       "alice",
		Black:       `bob "the rook"`,
		Date:        time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Termination: "Resignation",
	}, []string{"e4", "e5", "Nf3"}, ResultToken("black"))

	for _, want := range []string{
		`[Date "2024.03.09"]`,
		`[White "alice"]`,
		`[Black "bob 'the rook'"]`,
		`[Termination "resignation"]`,
		`[Result "0-1"]`,
		"1. e4 e5 2. Nf3 0-1",
	} {
		if !strings.Contains(pgn, want) { t.Fatalf("missing %q in\n%s", want, pgn) }
	}
}

func TestResultToken(t *testing.T) {
	cases := map[string]string{"white": "1-0", "BLACK": "0-1", "draw": "1/2-1/2", "": "*", "abandoned": "*"}
	for in, want := range cases {
		if got := ResultToken(in); got != want { t.Fatalf("ResultToken(%q) = %q, want %q", in, got, want) }
	}
}
