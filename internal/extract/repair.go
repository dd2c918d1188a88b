package extract

import "strings"

// maxCosmeticPasses bounds trailing-comma removal for nested structures
const maxCosmeticPasses = 4

// StructuralPattern describes a known defect: the last field of Container is
// immediately followed by NextField without Container's closing brace
type StructuralPattern struct {
	Container string
	LastField string
	NextField string
}

// DefaultPatterns are the defects observed in assessment output
var DefaultPatterns = []StructuralPattern{
	{Container: "health_dimensions", LastField: "map", NextField: "dimension_explanations"},
	{Container: "dimension_explanations", LastField: "map", NextField: "overall_recommendation"},
}

// RepairStructure inserts the missing closing brace for every pattern that
// matches. Text that does not exhibit a pattern is returned unchanged.
func RepairStructure(text string, patterns []StructuralPattern) string {
	for _, p := range patterns {
		text = repairPattern(text, p)
	}
	return text
}

func repairPattern(text string, p StructuralPattern) string {
	nextIdx := strings.Index(text, quote(p.NextField))
	if nextIdx < 0 {
		return text
	}

	head := text[:nextIdx]
	containerIdx := strings.LastIndex(head, quote(p.Container))
	lastIdx := strings.LastIndex(head, quote(p.LastField))
	if containerIdx < 0 || lastIdx < containerIdx {
		return text
	}

	// Already closed
	if strings.ContainsRune(head[lastIdx:], '}') {
		return text
	}

	closed := strings.TrimRight(head, " \t\r\n,")
	return closed + "},\n" + text[nextIdx:]
}

// RepairCosmetic strips comments, then removes trailing commas before '}' or
// ']' until nothing changes or the pass limit is reached
func RepairCosmetic(text string) string {
	text = stripComments(text)
	for i := 0; i < maxCosmeticPasses; i++ {
		next := stripTrailingCommas(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

// stripComments removes // and /* */ spans that sit outside string literals
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				i = len(s)
			} else {
				i += j - 1 // keep the newline
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			j := strings.Index(s[i+2:], "*/")
			if j < 0 {
				i = len(s)
			} else {
				i += j + 3
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// stripTrailingCommas drops a comma whose next non-space byte closes a
// container. Commas inside strings are left alone.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
		}
		if c == ',' && closesNext(s[i+1:]) {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func closesNext(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest != "" && (rest[0] == '}' || rest[0] == ']')
}

func quote(field string) string {
	return `"` + field + `"`
}
