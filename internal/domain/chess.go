package domain

import "time"

// GameRecord is a finished game as persisted.
type GameRecord struct {
	ID           int64
	GameID       string
	Difficulty   string
	Result       string
	ResultMethod string
	MovesUCI     []string
	MovesSAN     []string
	PGN          string
	FinalFEN     string
	OpeningCode  string
	OpeningName  string
	EngineName   string
	HintsShown   int
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}
