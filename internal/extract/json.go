package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// StrategyName identifies one step of the recovery chain
type StrategyName string

const (
	StrategyDirect     StrategyName = "direct"
	StrategyFenced     StrategyName = "fenced_block"
	StrategyStructural StrategyName = "structural_repair"
	StrategyCosmetic   StrategyName = "cosmetic_repair"
	StrategyBraceScan  StrategyName = "brace_scan"
)

// excerptRunes bounds how much of the offending text an ExtractionError keeps
const excerptRunes = 200

// fencePattern matches the first fenced block whose body opens an object
var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON|json5)?[ \t]*\r?\n?\\s*(\\{.*?)```")

// ParseFunc turns text into a JSON object or reports why it could not
type ParseFunc func(text string) (map[string]any, error)

// Strategy is one tagged step of the recovery chain
type Strategy struct {
	Name  StrategyName
	Parse ParseFunc
}

// ExtractionError is returned when no strategy recovers an object
type ExtractionError struct {
	Cause   error  // Parser error from parsing the text as-is
	Excerpt string // Bounded prefix of the offending text
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no JSON object recovered: %v (text: %q)", e.Cause, e.Excerpt)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// JSONExtractor recovers a JSON object from free-form model output by trying
// each strategy in order. The first success wins.
type JSONExtractor struct {
	strategies []Strategy
}

// NewJSONExtractor creates an extractor with the default strategy chain
func NewJSONExtractor() *JSONExtractor {
	return &JSONExtractor{strategies: DefaultStrategies()}
}

// DefaultStrategies returns the chain ordered from "assume well-behaved" to
// "assume badly-behaved"
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyDirect, Parse: DirectParse},
		{Name: StrategyFenced, Parse: FencedBlockParse},
		{Name: StrategyStructural, Parse: StructuralRepairParse},
		{Name: StrategyCosmetic, Parse: CosmeticRepairParse},
		{Name: StrategyBraceScan, Parse: BraceScanParse},
	}
}

// Extract returns the first object any strategy recovers
func (e *JSONExtractor) Extract(text string) (map[string]any, error) {
	obj, _, err := e.ExtractWithStrategy(text)
	return obj, err
}

// ExtractWithStrategy is Extract that also reports which strategy succeeded
func (e *JSONExtractor) ExtractWithStrategy(text string) (map[string]any, StrategyName, error) {
	var firstErr error
	for _, s := range e.strategies {
		obj, err := s.Parse(text)
		if err == nil {
			return obj, s.Name, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		firstErr = errors.New("no extraction strategies configured")
	}
	return nil, "", &ExtractionError{
		Cause:   firstErr,
		Excerpt: excerpt(text, excerptRunes),
	}
}

// Extract runs the default chain
func Extract(text string) (map[string]any, error) {
	return NewJSONExtractor().Extract(text)
}

// DirectParse parses the whole text
func DirectParse(text string) (map[string]any, error) {
	return parseObject(text)
}

// FencedBlockParse parses the first fenced code block that opens an object
func FencedBlockParse(text string) (map[string]any, error) {
	block, ok := fencedBlock(text)
	if !ok {
		return nil, errors.New("no fenced JSON block")
	}
	return parseObject(block)
}

// StructuralRepairParse closes known unterminated containers, then parses.
// It works on the fenced block when one exists, otherwise on the whole text.
func StructuralRepairParse(text string) (map[string]any, error) {
	return parseObject(RepairStructure(candidate(text), DefaultPatterns))
}

// CosmeticRepairParse strips comments and trailing commas on top of the
// structural repair, then parses
func CosmeticRepairParse(text string) (map[string]any, error) {
	return parseObject(RepairCosmetic(RepairStructure(candidate(text), DefaultPatterns)))
}

// BraceScanParse slices from the first '{' to the last '}' and retries the
// repairs on that slice
func BraceScanParse(text string) (map[string]any, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no brace-delimited span")
	}

	slice := text[start : end+1]
	if obj, err := parseObject(slice); err == nil {
		return obj, nil
	}
	return parseObject(RepairCosmetic(RepairStructure(slice, DefaultPatterns)))
}

func candidate(text string) string {
	if block, ok := fencedBlock(text); ok {
		return block
	}
	return text
}

func fencedBlock(text string) (string, bool) {
	m := fencePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func parseObject(text string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is %T, not an object", v)
	}
	return obj, nil
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
