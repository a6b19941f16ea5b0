package chesspresenter

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/msgcat"
)

// Message keys required from the catalog.
const (
	keyJoinedPlayer   = "notify.joined_player"
	keyJoinedObserver = "notify.joined_observer"
	keyMoved          = "notify.moved"
	keyCheck          = "notify.check"
	keyCheckmate      = "notify.checkmate"
	keyStalemate      = "notify.stalemate"
	keyLeft           = "notify.left"
	keyResigned       = "notify.resigned"
)

var requiredKeys = []string{
	keyJoinedPlayer, keyJoinedObserver, keyMoved, keyCheck,
	keyCheckmate, keyStalemate, keyLeft, keyResigned,
}

// Formatter renders notification texts for game events.
// A nil catalog, or a template that fails to render, falls back to built-in English.
type Formatter struct {
	catalog *msgcat.Catalog
}

// NewFormatter checks that catalog carries every key the formatter uses.
func NewFormatter(catalog *msgcat.Catalog) (*Formatter, error) {
	if catalog != nil {
		if err := catalog.Require(requiredKeys...); err != nil {
			return nil, err
		}
	}
	return &Formatter{catalog: catalog}, nil
}

func (f *Formatter) render(key string, data map[string]string, fallback string) string {
	if f == nil || f.catalog == nil {
		return fallback
	}
	out, err := f.catalog.Render(key, data)
	if err != nil || strings.TrimSpace(out) == "" {
		return fallback
	}
	return out
}

// side is the lower-case color used mid-sentence ("joined as white").
func side(c chess.Color) string { return strings.ToLower(c.String()) }

// title is the capitalised color used to open a clause ("White wins.").
func title(c chess.Color) string {
	if c == chess.Black {
		return "Black"
	}
	return "White"
}

// displayName falls back to the color when a seat is empty.
func displayName(user string, c chess.Color) string {
	if u := strings.TrimSpace(user); u != "" {
		return u
	}
	return title(c)
}

func (f *Formatter) JoinedPlayer(user string, c chess.Color) string {
	return f.render(keyJoinedPlayer, map[string]string{"User": user, "Color": side(c)},
		fmt.Sprintf("%s joined as %s", user, side(c)))
}

func (f *Formatter) JoinedObserver(user string) string {
	return f.render(keyJoinedObserver, map[string]string{"User": user},
		fmt.Sprintf("%s joined as an observer", user))
}

// Moved describes a move; desc is SAN when available, coordinates otherwise.
func (f *Formatter) Moved(user, desc string) string {
	return f.render(keyMoved, map[string]string{"User": user, "Move": desc},
		fmt.Sprintf("%s moved %s", user, desc))
}

// Status reports check, checkmate or stalemate for the player on c.
// It returns "" for StatusNormal.
func (f *Formatter) Status(user string, c chess.Color, st chess.Status) string {
	name := displayName(user, c)
	data := map[string]string{"User": name, "Color": side(c), "Winner": title(c.Opponent())}
	switch st {
	case chess.StatusCheck:
		return f.render(keyCheck, data, fmt.Sprintf("%s (%s) is in check", name, side(c)))
	case chess.StatusCheckmate:
		return f.render(keyCheckmate, data, fmt.Sprintf("%s (%s) is in checkmate. %s wins.", name, side(c), title(c.Opponent())))
	case chess.StatusStalemate:
		return f.render(keyStalemate, data, fmt.Sprintf("%s (%s) is in stalemate. The game is a draw.", name, side(c)))
	}
	return ""
}

func (f *Formatter) Left(user string) string {
	return f.render(keyLeft, map[string]string{"User": user}, fmt.Sprintf("%s left the game", user))
}

func (f *Formatter) Resigned(user string, winner chess.Color) string {
	return f.render(keyResigned, map[string]string{"User": user, "Winner": title(winner)},
		fmt.Sprintf("%s resigned. %s wins.", user, title(winner)))
}

// MoveDescription prefers SAN and falls back to "e2e4" style coordinates.
func MoveDescription(m chess.Move, san string) string {
	if s := strings.TrimSpace(san); s != "" {
		return s
	}
	return m.UCI()
}
