package chessdto

// Cell addresses a screen square; row 0 is rank 8 and col 0 is file a.
type Cell struct {
	Row int
	Col int
}

// BoardView is everything a presentation layer needs to redraw the board.
type BoardView struct {
	GameID     string
	Glyphs     [8][8]string
	Turn       string
	Selected   *Cell
	LastFrom   *Cell
	LastTo     *Cell
	FEN        string
	Ply        int
	Difficulty string
	Opening    string
	State      string
	EngineOn   bool
	Material   MaterialScore
}

type MaterialScore struct {
	White int
	Black int
}
