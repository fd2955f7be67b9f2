package chess

import (
	"errors"
	"math/rand"
)

// Candidate is one line from a MultiPV search.
type Candidate struct {
	Move      string
	EvalCP    int
	Principal []string
}

// SelectCandidate draws among the first PrimaryChoices candidates using the
// preset's weights.
func SelectCandidate(p DifficultyPreset, candidates []Candidate, r *rand.Rand) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, errors.New("no candidates to choose from")
	}
	if err := ValidatePreset(p); err != nil {
		return Candidate{}, err
	}

	primaryLimit := p.PrimaryChoices
	if primaryLimit > len(candidates) {
		primaryLimit = len(candidates)
	}

	totalWeight := 0.0
	for i := 0; i < primaryLimit; i++ {
		totalWeight += p.CandidateWeights[i]
	}
	if totalWeight == 0 {
		return candidates[0], nil
	}

	threshold := r.Float64() * totalWeight
	index := primaryLimit - 1
	for i := 0; i < primaryLimit; i++ {
		threshold -= p.CandidateWeights[i]
		if threshold <= 0 {
			index = i
			break
		}
	}
	return candidates[index], nil
}
