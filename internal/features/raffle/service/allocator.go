package service

import (
	"math/rand"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/models"
)

// Allocator is the pure draw decision: given a pool snapshot it picks a tier
// by weight, then a prize uniformly within the tier. No I/O, no hidden state;
// the outcome is fully determined by the snapshot and the random source, so
// the commit of the decision is left to the coordinator.
type Allocator struct {
	rng *rand.Rand
}

// NewAllocator creates an allocator drawing from rng. Pass a seeded source in
// tests for reproducible picks.
func NewAllocator(rng *rand.Rand) *Allocator {
	return &Allocator{rng: rng}
}

// Draw selects one (tier, prize) pair from the snapshot, or ok=false when the
// pool is exhausted. Snapshot tiers must be in ascending tier order, as the
// store returns them.
func (a *Allocator) Draw(snapshot []models.TierSnapshot) (models.Tier, models.Prize, bool) {
	w := totalWeight(snapshot)
	if w <= 0 {
		return models.Tier{}, models.Prize{}, false
	}
	return drawAt(snapshot, a.rng.Float64()*w, a.rng.Intn)
}

// totalWeight sums the weights of tiers that still hold prize units. Depleted
// tiers contribute nothing, so their probability mass redistributes over the
// rest instead of wasting rolls.
func totalWeight(snapshot []models.TierSnapshot) float64 {
	var w float64
	for _, ts := range snapshot {
		if !ts.Tier.Depleted() {
			w += ts.Tier.Weight
		}
	}
	return w
}

// drawAt walks the tiers in ascending order accumulating weight and selects
// the first non-depleted tier whose cumulative weight reaches roll. A selected
// tier without a single available prize cedes to the next qualifying tier
// rather than failing the draw. pick chooses uniformly in [0,n).
func drawAt(snapshot []models.TierSnapshot, roll float64, pick func(n int) int) (models.Tier, models.Prize, bool) {
	var (
		cum      float64
		selected bool
	)
	for _, ts := range snapshot {
		if ts.Tier.Depleted() {
			continue
		}
		if !selected {
			cum += ts.Tier.Weight
			if cum < roll {
				continue
			}
			selected = true
		}

		eligible := availablePrizes(ts.Prizes)
		if len(eligible) == 0 {
			continue
		}
		return ts.Tier, eligible[pick(len(eligible))], true
	}
	return models.Tier{}, models.Prize{}, false
}

func availablePrizes(prizes []models.Prize) []models.Prize {
	eligible := make([]models.Prize, 0, len(prizes))
	for _, p := range prizes {
		if p.Available() {
			eligible = append(eligible, p)
		}
	}
	return eligible
}
