package score

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ppiankov/covenant/internal/model"
)

// InvalidDimensionError identifies the dimension that failed validation
type InvalidDimensionError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidDimensionError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid dimension %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid dimension %q (%v): %s", e.Field, e.Value, e.Reason)
}

// DimensionsKey is the object key that holds the four ratings
const DimensionsKey = "health_dimensions"

// Validate checks that every dimension lies in [0,100]
func Validate(dims model.DimensionSet) error {
	values := []struct {
		key string
		v   int
	}{
		{model.KeyDestructionRisk, dims.DestructionRisk},
		{model.KeyMutualAdvantage, dims.MutualAdvantage},
		{model.KeyAttritionDepth, dims.AttritionDepth},
		{model.KeyStrategicPotential, dims.StrategicPotential},
	}
	for _, d := range values {
		if d.v < 0 || d.v > 100 {
			return &InvalidDimensionError{Field: d.key, Value: d.v, Reason: "out of range [0,100]"}
		}
	}
	return nil
}

// ParseDimensions reads the four ratings out of an extracted object. Every
// rating must be present, numeric, finite, integral and within range. Nothing
// is defaulted.
func ParseDimensions(obj map[string]any) (model.DimensionSet, error) {
	rawDims, ok := obj[DimensionsKey]
	if !ok {
		return model.DimensionSet{}, &InvalidDimensionError{Field: DimensionsKey, Reason: "missing"}
	}
	dimsObj, ok := rawDims.(map[string]any)
	if !ok {
		return model.DimensionSet{}, &InvalidDimensionError{Field: DimensionsKey, Value: rawDims, Reason: "not an object"}
	}

	values := make(map[string]int, len(model.DimensionKeys))
	for _, key := range model.DimensionKeys {
		v, err := dimensionValue(key, dimsObj)
		if err != nil {
			return model.DimensionSet{}, err
		}
		values[key] = v
	}

	dims := model.DimensionSet{
		DestructionRisk:    values[model.KeyDestructionRisk],
		MutualAdvantage:    values[model.KeyMutualAdvantage],
		AttritionDepth:     values[model.KeyAttritionDepth],
		StrategicPotential: values[model.KeyStrategicPotential],
	}
	return dims, Validate(dims)
}

func dimensionValue(key string, obj map[string]any) (int, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return 0, &InvalidDimensionError{Field: key, Reason: "missing"}
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, &InvalidDimensionError{Field: key, Value: raw, Reason: "not numeric"}
		}
		f = parsed
	default:
		return 0, &InvalidDimensionError{Field: key, Value: raw, Reason: "not numeric"}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &InvalidDimensionError{Field: key, Value: raw, Reason: "not finite"}
	}
	if f != math.Trunc(f) {
		return 0, &InvalidDimensionError{Field: key, Value: raw, Reason: "not an integer"}
	}
	if f < 0 || f > 100 {
		return 0, &InvalidDimensionError{Field: key, Value: raw, Reason: "out of range [0,100]"}
	}
	return int(f), nil
}
