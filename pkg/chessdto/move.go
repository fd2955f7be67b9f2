package chessdto

// GameResult is emitted once when a game reaches a terminal position.
type GameResult struct {
	GameID  string
	Outcome string
	Method  string
	Winner  string
	Text    string
	Plies   int
}
