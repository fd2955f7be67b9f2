package game

// State is the controller's position in the turn cycle.
type State int

const (
	AwaitingSelection State = iota
	AwaitingDestination
	AwaitingOpponentMove
	GeneratingHint
	GameOver
)

func (s State) String() string {
	switch s {
	case AwaitingSelection:
		return "awaiting_selection"
	case AwaitingDestination:
		return "awaiting_destination"
	case AwaitingOpponentMove:
		return "awaiting_opponent_move"
	case GeneratingHint:
		return "generating_hint"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// acceptsClicks reports whether board clicks are interpreted in s.
func (s State) acceptsClicks() bool {
	return s == AwaitingSelection || s == AwaitingDestination || s == GeneratingHint
}
