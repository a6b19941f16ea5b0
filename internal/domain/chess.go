package domain

import "time"

// GameResult is the archived summary of a finished game.
type GameResult struct {
	GameID        int
	GameName      string
	WhiteUsername string
	BlackUsername string
	Result        string
	ResultMethod  string
	MovesUCI      []string
	MovesSAN      []string
	PGN           string
	StartedAt     time.Time
	EndedAt       time.Time
	Duration      time.Duration
}
