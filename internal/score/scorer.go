package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/covenant/internal/model"
)

const (
	// BreakerThreshold is the destruction risk above which the score is capped
	BreakerThreshold = 35
	// BreakerCap is the highest score a record over the threshold can reach
	BreakerCap = 59

	bonusRiskCeiling   = 5
	bonusAdvantageLow  = 75
	bonusAdvantageHigh = 85
	bonusLow           = 5
	bonusHigh          = 3

	weightTolerance = 1e-9
)

// Weights controls the safety/value split. The two must sum to 1.
type Weights struct {
	Safety float64
	Value  float64
}

// DefaultWeights returns the 60/40 split
func DefaultWeights() Weights {
	return Weights{Safety: 0.6, Value: 0.4}
}

// Validate checks that both weights are non-negative and sum to 1
func (w Weights) Validate() error {
	if w.Safety < 0 || w.Value < 0 || math.IsNaN(w.Safety) || math.IsNaN(w.Value) {
		return fmt.Errorf("weights must be non-negative, got safety=%v value=%v", w.Safety, w.Value)
	}
	if math.Abs(w.Safety+w.Value-1) > weightTolerance {
		return fmt.Errorf("weights must sum to 1, got safety=%v value=%v", w.Safety, w.Value)
	}
	return nil
}

// Scorer maps a dimension set to a health score. It is a pure function of
// its weights and input.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the scorer's configured weights
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score validates the dimensions and computes the final score, tier and
// breakdown. Either a complete result or an error is returned.
func (s *Scorer) Score(dims model.DimensionSet) (model.Score, error) {
	// 1. Validate before any computation
	if err := Validate(dims); err != nil {
		return model.Score{}, err
	}

	// 2. Safety component
	safety := float64(100-dims.DestructionRisk) * s.weights.Safety

	// 3. Value component
	avg := float64(dims.MutualAdvantage+dims.AttritionDepth+dims.StrategicPotential) / 3
	value := avg * s.weights.Value

	// 4. Raw score
	raw := safety + value

	// 5. Bonus rules are independent and additive
	bonus := bonusPoints(dims)
	total := raw + float64(bonus)

	// 6. Circuit breaker
	breaker := dims.DestructionRisk > BreakerThreshold
	if breaker && total > BreakerCap {
		total = BreakerCap
	}

	// 7. Clamp and round
	final := int(math.Round(clamp(total, 0, 100)))

	// 8. Tier
	tier := TierFor(final)

	return model.Score{
		Final:     final,
		Tier:      tier,
		TierLabel: tier.Label(),
		Breakdown: model.ScoreBreakdown{
			SafetyScore:    round1(safety),
			ValueScore:     round1(value),
			BonusPoints:    bonus,
			RawScore:       round1(raw),
			CircuitBreaker: breaker,
		},
	}, nil
}

// TierFor maps a final score onto its tier, highest band first
func TierFor(score int) model.Tier {
	switch {
	case score >= 90:
		return model.TierS
	case score >= 80:
		return model.TierA
	case score >= 70:
		return model.TierB
	case score >= 60:
		return model.TierC
	default:
		return model.TierD
	}
}

func bonusPoints(dims model.DimensionSet) int {
	bonus := 0
	if dims.DestructionRisk < bonusRiskCeiling && dims.MutualAdvantage > bonusAdvantageLow {
		bonus += bonusLow
	}
	if dims.DestructionRisk < bonusRiskCeiling && dims.MutualAdvantage > bonusAdvantageHigh {
		bonus += bonusHigh
	}
	return bonus
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
