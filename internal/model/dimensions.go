package model

// DimensionSet holds the four ratings the assessment produces for one document.
// Every field is an integer in [0,100].
type DimensionSet struct {
	DestructionRisk    int `json:"mad"` // Higher is more dangerous; the only risk-weighted dimension
	MutualAdvantage    int `json:"mao"` // Immediate economic benefit
	AttritionDepth     int `json:"maa"` // Depth of mutual commitment (treated as favorable)
	StrategicPotential int `json:"map"` // Long-term strategic value
}

// Dimension keys as they appear in assessment output and persisted records
const (
	KeyDestructionRisk    = "mad"
	KeyMutualAdvantage    = "mao"
	KeyAttritionDepth     = "maa"
	KeyStrategicPotential = "map"
)

// DimensionKeys lists the dimension keys in canonical order
var DimensionKeys = []string{
	KeyDestructionRisk,
	KeyMutualAdvantage,
	KeyAttritionDepth,
	KeyStrategicPotential,
}

// Narratives holds one free-text explanation per dimension
type Narratives struct {
	DestructionRisk    string `json:"mad"`
	MutualAdvantage    string `json:"mao"`
	AttritionDepth     string `json:"maa"`
	StrategicPotential string `json:"map"`
}

// Tier is the discrete grade derived from a final score
type Tier string

const (
	TierS Tier = "S"
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// Label returns the fixed human label for the tier
func (t Tier) Label() string {
	switch t {
	case TierS:
		return "Exceptional"
	case TierA:
		return "Healthy"
	case TierB:
		return "Stable"
	case TierC:
		return "Caution"
	case TierD:
		return "High Risk"
	default:
		return "Unknown"
	}
}

// ScoreBreakdown carries the intermediate values behind a final score so a
// reader can see why a score came out the way it did
type ScoreBreakdown struct {
	SafetyScore    float64 `json:"safetyScore"`    // (100 - mad) * safety weight, one decimal
	ValueScore     float64 `json:"valueScore"`     // avg(mao, maa, map) * value weight, one decimal
	BonusPoints    int     `json:"bonusPoints"`    // 0, 5 or 8
	RawScore       float64 `json:"rawScore"`       // safety + value before bonus, one decimal
	CircuitBreaker bool    `json:"circuitBreaker"` // Whether the destruction-risk cap applied
}

// Score is the complete output of the scoring engine
type Score struct {
	Final     int            `json:"final"`
	Tier      Tier           `json:"tier"`
	TierLabel string         `json:"tier_label"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}
