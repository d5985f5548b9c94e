package rubric

import (
	"github.com/jonesrussell/aeoscan/internal/domain"
)

// scoreScaleFactor converts the 0-5 check scale to 0-100.
const scoreScaleFactor = 100 / MaxCheckScore

// ComputePillarScores aggregates check outcomes into per-pillar scores
// normalized to 0-100. Each check's score is weighted by its declared
// weight; skipped and inconclusive results are excluded rather than
// counted as failures. Pillars with no scored checks are omitted.
func ComputePillarScores(registry *Registry, outcomes []Outcome) []domain.PillarScore {
	type accumulator struct {
		weightedSum float64
		totalWeight float64
	}

	acc := make(map[string]*accumulator)

	for _, outcome := range outcomes {
		if outcome.Result.Skipped || outcome.Result.Inconclusive {
			continue
		}

		a, ok := acc[outcome.Check.PillarID]
		if !ok {
			a = &accumulator{}
			acc[outcome.Check.PillarID] = a
		}

		a.weightedSum += outcome.Result.Score * scoreScaleFactor * outcome.Check.Weight
		a.totalWeight += outcome.Check.Weight
	}

	scores := make([]domain.PillarScore, 0, len(registry.Pillars))
	for _, pillar := range registry.Pillars {
		a, ok := acc[pillar.ID]
		if !ok || a.totalWeight == 0 {
			continue
		}

		scores = append(scores, domain.PillarScore{
			PillarID: pillar.ID,
			Name:     pillar.Name,
			Score:    a.weightedSum / a.totalWeight,
		})
	}

	return scores
}

// ComputeOverallScore rolls pillar scores up into the 0-100 overall
// score using the rubric's declared pillar weights.
func ComputeOverallScore(registry *Registry, pillarScores []domain.PillarScore) float64 {
	var weightedSum, totalWeight float64

	for _, ps := range pillarScores {
		pillar, ok := registry.PillarByID(ps.PillarID)
		if !ok {
			continue
		}
		weightedSum += ps.Score * pillar.Weight
		totalWeight += pillar.Weight
	}

	if totalWeight == 0 {
		return 0
	}

	return weightedSum / totalWeight
}
