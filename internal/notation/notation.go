// Package notation renders move history in standard chess notations (SAN, FEN, PGN).
//
// Rules are enforced by internal/chess; this package only describes games that
// internal/chess already accepted. Histories are coordinate (UCI) strings replayed
// from the standard starting position.
package notation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
)

// ErrReplay means a history could not be replayed from the initial position.
var ErrReplay = errors.New("notation: history does not replay")

func replay(history []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	for i, mv := range history {
		if err := game.PushNotationMove(strings.ToLower(strings.TrimSpace(mv)), nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("%w: ply %d (%s): %v", ErrReplay, i+1, mv, err)
		}
	}
	return game, nil
}

// SAN describes uci, played after history, in standard algebraic notation.
func SAN(history []string, uci string) (string, error) {
	game, err := replay(history)
	if err != nil {
		return "", err
	}
	uci = strings.ToLower(strings.TrimSpace(uci))
	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrReplay, uci, err)
	}
	if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return "", fmt.Errorf("%w: %s not playable: %v", ErrReplay, uci, err)
	}
	return nchess.AlgebraicNotation{}.Encode(pos, mv), nil
}

// SANList converts a whole history. Entries that cannot be described keep their
// coordinate form, so the result always has len(history) items.
func SANList(history []string) []string {
	out := make([]string, 0, len(history))
	game := nchess.NewGame()
	broken := false
	for _, uci := range history {
		if broken {
			out = append(out, uci)
			continue
		}
		pos := game.Position()
		mv, err := nchess.UCINotation{}.Decode(pos, uci)
		if err != nil {
			broken = true
			out = append(out, uci)
			continue
		}
		if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
			broken = true
			out = append(out, uci)
			continue
		}
		out = append(out, nchess.AlgebraicNotation{}.Encode(pos, mv))
	}
	return out
}

// FEN returns the Forsyth-Edwards string of the position after history.
func FEN(history []string) (string, error) {
	game, err := replay(history)
	if err != nil {
		return "", err
	}
	return game.FEN(), nil
}

// Header carries the PGN tag pairs this server fills in.
type Header struct {
	Event       string
	Site        string
	White       string
	Black       string
	Date        time.Time
	Termination string
}

// ResultToken maps an outcome ("white", "black", "draw") to the PGN result token.
func ResultToken(outcome string) string {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

// PGN renders a game record with numbered SAN moves.
func PGN(h Header, san []string, result string) string {
	var b strings.Builder
	date := h.Date
	if date.IsZero() {
		date = time.Now()
	}
	event := h.Event
	if strings.TrimSpace(event) == "" {
		event = "Online game"
	}
	site := h.Site
	if strings.TrimSpace(site) == "" {
		site = "?"
	}
	white, black := h.White, h.Black
	if strings.TrimSpace(white) == "" {
		white = "?"
	}
	if strings.TrimSpace(black) == "" {
		black = "?"
	}
	if result == "" {
		result = "*"
	}

	fmt.Fprintf(&b, "[Event \"%s\"]\n", sanitize(event))
	fmt.Fprintf(&b, "[Site \"%s\"]\n", sanitize(site))
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitize(white))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitize(black))
	if strings.TrimSpace(h.Termination) != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitize(strings.ToLower(h.Termination)))
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", result)

	for i := 0; i < len(san); i += 2 {
		fmt.Fprintf(&b, "%d. %s", i/2+1, strings.TrimSpace(san[i]))
		if i+1 < len(san) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(san[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
