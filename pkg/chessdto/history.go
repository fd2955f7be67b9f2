package chessdto

import "time"

// GameSummary is a finished game as listed by the history view.
type GameSummary struct {
	GameID     string
	Result     string
	Method     string
	Difficulty string
	Opening    string
	Plies      int
	EndedAt    time.Time
	Duration   time.Duration
}
