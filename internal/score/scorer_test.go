package score

import (
	"errors"
	"math"
	"testing"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultWeights())
	require.NoError(t, err)
	return s
}

func TestScorer_Score_LowRiskWithBonus(t *testing.T) {
	s := newTestScorer(t)

	result, err := s.Score(model.DimensionSet{
		DestructionRisk:    3,
		MutualAdvantage:    78,
		AttritionDepth:     60,
		StrategicPotential: 50,
	})
	require.NoError(t, err)

	assert.InDelta(t, 58.2, result.Breakdown.SafetyScore, 1e-9)
	assert.InDelta(t, 25.1, result.Breakdown.ValueScore, 1e-9)
	assert.InDelta(t, 83.3, result.Breakdown.RawScore, 1e-9)
	assert.Equal(t, 5, result.Breakdown.BonusPoints)
	assert.False(t, result.Breakdown.CircuitBreaker)
	assert.Equal(t, 88, result.Final)
	assert.Equal(t, model.TierA, result.Tier)
	assert.Equal(t, model.TierA.Label(), result.TierLabel)
}

func TestScorer_Score_BreakerScenario(t *testing.T) {
	s := newTestScorer(t)

	result, err := s.Score(model.DimensionSet{
		DestructionRisk:    45,
		MutualAdvantage:    80,
		AttritionDepth:     50,
		StrategicPotential: 40,
	})
	require.NoError(t, err)

	assert.InDelta(t, 55.7, result.Breakdown.RawScore, 1e-9)
	assert.True(t, result.Breakdown.CircuitBreaker)
	assert.Equal(t, 0, result.Breakdown.BonusPoints)
	assert.Equal(t, 56, result.Final)
	assert.Equal(t, model.TierD, result.Tier)
}

func TestScorer_Score_BothBonuses(t *testing.T) {
	s := newTestScorer(t)

	result, err := s.Score(model.DimensionSet{
		DestructionRisk:    0,
		MutualAdvantage:    100,
		AttritionDepth:     100,
		StrategicPotential: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, 8, result.Breakdown.BonusPoints)
	// 60 + 40 + 8 clamps to 100
	assert.Equal(t, 100, result.Final)
	assert.Equal(t, model.TierS, result.Tier)
}

func TestScorer_Score_BreakerCapsHighValue(t *testing.T) {
	s := newTestScorer(t)

	// Raw is 36 + 40 = 76 but risk 40 forces the cap
	result, err := s.Score(model.DimensionSet{
		DestructionRisk:    40,
		MutualAdvantage:    100,
		AttritionDepth:     100,
		StrategicPotential: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, BreakerCap, result.Final)
	assert.Equal(t, model.TierD, result.Tier)
}

func TestScorer_Score_StrictThresholds(t *testing.T) {
	s := newTestScorer(t)

	tests := []struct {
		name    string
		dims    model.DimensionSet
		bonus   int
		final   int
		breaker bool
	}{
		{"risk 5 earns no bonus", model.DimensionSet{DestructionRisk: 5, MutualAdvantage: 90, AttritionDepth: 50, StrategicPotential: 50}, 0, 82, false},
		{"risk 4 earns both bonuses", model.DimensionSet{DestructionRisk: 4, MutualAdvantage: 90, AttritionDepth: 50, StrategicPotential: 50}, 8, 91, false},
		{"advantage 75 earns no bonus", model.DimensionSet{DestructionRisk: 4, MutualAdvantage: 75, AttritionDepth: 50, StrategicPotential: 50}, 0, 81, false},
		{"advantage 76 earns low bonus", model.DimensionSet{DestructionRisk: 4, MutualAdvantage: 76, AttritionDepth: 50, StrategicPotential: 50}, 5, 86, false},
		{"advantage 85 keeps low bonus", model.DimensionSet{DestructionRisk: 4, MutualAdvantage: 85, AttritionDepth: 50, StrategicPotential: 50}, 5, 87, false},
		{"advantage 86 earns both bonuses", model.DimensionSet{DestructionRisk: 4, MutualAdvantage: 86, AttritionDepth: 50, StrategicPotential: 50}, 8, 90, false},
		{"risk 35 stays uncapped", model.DimensionSet{DestructionRisk: 35, MutualAdvantage: 100, AttritionDepth: 100, StrategicPotential: 100}, 0, 79, false},
		{"risk 36 trips the breaker", model.DimensionSet{DestructionRisk: 36, MutualAdvantage: 100, AttritionDepth: 100, StrategicPotential: 100}, 0, 59, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Score(tt.dims)
			require.NoError(t, err)
			assert.Equal(t, tt.bonus, result.Breakdown.BonusPoints)
			assert.Equal(t, tt.final, result.Final)
			assert.Equal(t, tt.breaker, result.Breakdown.CircuitBreaker)
		})
	}
}

func TestScorer_Score_BreakerDominance(t *testing.T) {
	s := newTestScorer(t)

	for risk := BreakerThreshold + 1; risk <= 100; risk++ {
		for v := 0; v <= 100; v += 10 {
			result, err := s.Score(model.DimensionSet{
				DestructionRisk:    risk,
				MutualAdvantage:    v,
				AttritionDepth:     100 - v,
				StrategicPotential: v,
			})
			require.NoError(t, err)
			if result.Final > BreakerCap {
				t.Fatalf("risk=%d v=%d: final %d exceeds cap", risk, v, result.Final)
			}
		}
	}
}

func TestScorer_Score_Monotonicity(t *testing.T) {
	s := newTestScorer(t)
	base := model.DimensionSet{DestructionRisk: 20, MutualAdvantage: 60, AttritionDepth: 50, StrategicPotential: 40}

	final := func(d model.DimensionSet) int {
		r, err := s.Score(d)
		require.NoError(t, err)
		return r.Final
	}

	prev := math.MaxInt
	for risk := 0; risk <= 100; risk++ {
		d := base
		d.DestructionRisk = risk
		got := final(d)
		assert.LessOrEqual(t, got, prev, "risk=%d", risk)
		prev = got
	}

	setters := map[string]func(*model.DimensionSet, int){
		"mao": func(d *model.DimensionSet, v int) { d.MutualAdvantage = v },
		"maa": func(d *model.DimensionSet, v int) { d.AttritionDepth = v },
		"map": func(d *model.DimensionSet, v int) { d.StrategicPotential = v },
	}
	for name, set := range setters {
		prev := math.MinInt
		for v := 0; v <= 100; v++ {
			d := base
			set(&d, v)
			got := final(d)
			assert.GreaterOrEqual(t, got, prev, "%s=%d", name, v)
			prev = got
		}
	}
}

func TestScorer_Score_Idempotent(t *testing.T) {
	s := newTestScorer(t)
	dims := model.DimensionSet{DestructionRisk: 4, MutualAdvantage: 90, AttritionDepth: 33, StrategicPotential: 71}

	first, err := s.Score(dims)
	require.NoError(t, err)
	second, err := s.Score(dims)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScorer_Score_RejectsOutOfRange(t *testing.T) {
	s := newTestScorer(t)

	_, err := s.Score(model.DimensionSet{DestructionRisk: 10, MutualAdvantage: 101})
	require.Error(t, err)

	var dimErr *InvalidDimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, model.KeyMutualAdvantage, dimErr.Field)

	_, err = s.Score(model.DimensionSet{DestructionRisk: -1})
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, model.KeyDestructionRisk, dimErr.Field)
}

func TestTierFor_Bands(t *testing.T) {
	tests := []struct {
		score int
		want  model.Tier
	}{
		{100, model.TierS},
		{90, model.TierS},
		{89, model.TierA},
		{80, model.TierA},
		{79, model.TierB},
		{70, model.TierB},
		{69, model.TierC},
		{60, model.TierC},
		{59, model.TierD},
		{0, model.TierD},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.score), "score %d", tt.score)
	}
}

func TestNewScorer_RejectsBadWeights(t *testing.T) {
	_, err := NewScorer(Weights{Safety: 0.7, Value: 0.4})
	assert.Error(t, err)

	_, err = NewScorer(Weights{Safety: -0.5, Value: 1.5})
	assert.Error(t, err)

	s, err := NewScorer(Weights{Safety: 0.5, Value: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.Weights().Safety)
}
