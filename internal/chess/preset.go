package chess

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the user-facing strength level.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists levels from weakest to strongest.
var Difficulties = []Difficulty{Easy, Medium, Hard}

func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy", "1":
		return Easy, nil
	case "medium", "2":
		return Medium, nil
	case "hard", "3":
		return Hard, nil
	}
	return "", fmt.Errorf("unknown difficulty: %q", s)
}

// Label is the display name; unknown values pass through unchanged.
func (d Difficulty) Label() string {
	switch d {
	case Easy:
		return "Easy"
	case Medium:
		return "Medium"
	case Hard:
		return "Hard"
	default:
		return string(d)
	}
}

// DifficultyPreset maps a level to engine strength and search budget.
// PrimaryChoices and CandidateWeights drive hint move selection among the
// engine's MultiPV candidates.
type DifficultyPreset struct {
	Name             Difficulty
	SkillLevel       int
	MoveTimeMillis   int
	MultiPV          int
	PrimaryChoices   int
	CandidateWeights []float64
}

// Budget is the search time for the opponent move.
func (p DifficultyPreset) Budget() time.Duration {
	return time.Duration(p.MoveTimeMillis) * time.Millisecond
}

var DefaultPresets = map[Difficulty]DifficultyPreset{
	Easy: {
		Name:             Easy,
		SkillLevel:       3,
		MoveTimeMillis:   100,
		MultiPV:          3,
		PrimaryChoices:   1,
		CandidateWeights: []float64{1.0},
	},
	Medium: {
		Name:             Medium,
		SkillLevel:       10,
		MoveTimeMillis:   300,
		MultiPV:          3,
		PrimaryChoices:   2,
		CandidateWeights: []float64{0.8, 0.2},
	},
	Hard: {
		Name:             Hard,
		SkillLevel:       20,
		MoveTimeMillis:   500,
		MultiPV:          3,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.6, 0.25, 0.15},
	},
}

func GetPreset(d Difficulty) (DifficultyPreset, error) {
	p, ok := DefaultPresets[d]
	if !ok {
		return DifficultyPreset{}, fmt.Errorf("unknown difficulty preset: %s", d)
	}
	p.CandidateWeights = append([]float64(nil), p.CandidateWeights...)
	return p, nil
}

func ValidatePreset(p DifficultyPreset) error {
	switch {
	case p.SkillLevel < 0 || p.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", p.SkillLevel)
	case p.MoveTimeMillis <= 0:
		return fmt.Errorf("move time must be > 0: %d", p.MoveTimeMillis)
	case p.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", p.MultiPV)
	case p.PrimaryChoices <= 0:
		return fmt.Errorf("primary choices must be > 0: %d", p.PrimaryChoices)
	case p.PrimaryChoices > p.MultiPV:
		return fmt.Errorf("primary choices (%d) must not exceed multipv (%d)", p.PrimaryChoices, p.MultiPV)
	case len(p.CandidateWeights) < p.PrimaryChoices:
		return fmt.Errorf("candidate weights (%d) must cover primary choices (%d)", len(p.CandidateWeights), p.PrimaryChoices)
	}

	sum := 0.0
	for i := 0; i < p.PrimaryChoices; i++ {
		w := p.CandidateWeights[i]
		if w < 0 {
			return fmt.Errorf("candidate weight at index %d is negative: %f", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("candidate weights sum to zero")
	}
	return nil
}
