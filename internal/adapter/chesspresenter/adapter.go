package chesspresenter

import (
	"github.com/park285/riddlechess/internal/domain"
	"github.com/park285/riddlechess/pkg/chessdto"
)

func ToGameSummary(g *domain.GameRecord) *chessdto.GameSummary {
	if g == nil {
		return nil
	}
	plies := len(g.MovesSAN)
	if plies == 0 {
		plies = len(g.MovesUCI)
	}
	opening := g.OpeningName
	if g.OpeningCode != "" && opening != "" {
		opening = g.OpeningCode + " " + opening
	}
	return &chessdto.GameSummary{
		GameID:     g.GameID,
		Result:     g.Result,
		Method:     g.ResultMethod,
		Difficulty: g.Difficulty,
		Opening:    opening,
		Plies:      plies,
		EndedAt:    g.EndedAt,
		Duration:   g.Duration,
	}
}

func ToGameSummaries(games []*domain.GameRecord) []*chessdto.GameSummary {
	out := make([]*chessdto.GameSummary, 0, len(games))
	for _, g := range games {
		if s := ToGameSummary(g); s != nil {
			out = append(out, s)
		}
	}
	return out
}
