package extract

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_FencedWithTrailingComma(t *testing.T) {
	text := "Here is the result: ```json\n{\"a\":1,}\n``` thanks"

	obj, strategy, err := NewJSONExtractor().ExtractWithStrategy(text)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, obj)
	assert.Equal(t, StrategyCosmetic, strategy)
}

func TestExtract_DirectWins(t *testing.T) {
	obj, strategy, err := NewJSONExtractor().ExtractWithStrategy(`  {"mad": 3, "note": "ok"}  `)
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, strategy)
	assert.Equal(t, "ok", obj["note"])
}

func TestExtract_FencedBlock(t *testing.T) {
	text := "Sure!\n```json\n{\"document_type\": \"purchase agreement\"}\n```\nLet me know."

	obj, strategy, err := NewJSONExtractor().ExtractWithStrategy(text)
	require.NoError(t, err)
	assert.Equal(t, StrategyFenced, strategy)
	assert.Equal(t, "purchase agreement", obj["document_type"])
}

func TestExtract_RoundTripWithFencingAndTrailingCommas(t *testing.T) {
	original := map[string]any{
		"health_dimensions":      map[string]any{"mad": 12.0, "mao": 70.0, "maa": 40.0, "map": 55.0},
		"tags":                   []any{"supply", "exclusive"},
		"overall_recommendation": "Sign with amendments.",
	}
	raw, err := json.MarshalIndent(original, "", "  ")
	require.NoError(t, err)

	// Add a trailing comma after every last element
	mangled := strings.ReplaceAll(string(raw), "\n}", ",\n}")
	mangled = strings.ReplaceAll(mangled, "\n  }", ",\n  }")
	mangled = strings.ReplaceAll(mangled, "\n  ]", ",\n  ]")
	text := "Assessment follows.\n```json\n" + mangled + "\n```\n"

	obj, err := Extract(text)
	require.NoError(t, err)
	assert.Equal(t, original, obj)
}

func TestExtract_StructuralRepair(t *testing.T) {
	text := `{
  "document_type": "supply contract",
  "health_dimensions": {"mad": 10, "mao": 80, "maa": 60, "map": 70,
  "dimension_explanations": {"mad": "low", "mao": "high", "maa": "medium", "map": "good"},
  "overall_recommendation": "Proceed"
}`

	obj, strategy, err := NewJSONExtractor().ExtractWithStrategy(text)
	require.NoError(t, err)
	assert.Equal(t, StrategyStructural, strategy)

	dims, ok := obj["health_dimensions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(70), dims["map"])
	assert.Equal(t, "Proceed", obj["overall_recommendation"])
}

func TestExtract_CommentsOutsideStrings(t *testing.T) {
	text := `{
  // scores follow
  "url": "https://example.com/a//b", /* inline */
  "value": 4,
}`

	obj, err := Extract(text)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a//b", obj["url"])
	assert.Equal(t, float64(4), obj["value"])
}

func TestExtract_BraceScan(t *testing.T) {
	text := `The model says: {"mad": 5, "mao": 90,} and nothing else matters.`

	obj, strategy, err := NewJSONExtractor().ExtractWithStrategy(text)
	require.NoError(t, err)
	assert.Equal(t, StrategyBraceScan, strategy)
	assert.Equal(t, float64(90), obj["mao"])
}

func TestExtract_RejectsNonObject(t *testing.T) {
	_, err := Extract(`[1, 2, 3]`)
	require.Error(t, err)
}

func TestExtract_ErrorCarriesCauseAndExcerpt(t *testing.T) {
	text := "I could not assess this document. " + strings.Repeat("x", 500)

	_, err := Extract(text)
	require.Error(t, err)

	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.NotNil(t, extErr.Cause)
	assert.True(t, strings.HasPrefix(extErr.Excerpt, "I could not assess"))
	assert.LessOrEqual(t, len([]rune(extErr.Excerpt)), excerptRunes+3)

	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr), "cause should be the original parser error")
}

func TestExtract_EmptyText(t *testing.T) {
	_, err := Extract("")
	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "", extErr.Excerpt)
}
