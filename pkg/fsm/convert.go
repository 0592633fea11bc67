package fsm

import "strings"

// convertScalar applies the value converter's lenient int heuristic: strip
// grouping commas and underscores, allow one leading sign, and require every
// remaining character to be an ASCII digit. Anything else is returned
// unchanged as a string. hint forces the outcome when it is not
// FieldTypeNone.
func convertScalar(raw string, hint FieldType) any {
	switch hint {
	case FieldTypeString:
		return raw
	case FieldTypeInt:
		if n, ok := convertInt(raw); ok {
			return n
		}
		return raw
	default:
		if n, ok := convertInt(raw); ok {
			return n
		}
		return raw
	}
}

// convertInt implements the heuristic described on convertScalar, returning
// ok=false when raw is not a plausible integer literal.
func convertInt(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	stripped := strings.NewReplacer(",", "", "_", "").Replace(raw)
	if stripped == "" {
		return 0, false
	}

	i := 0
	sign := int64(1)
	if stripped[0] == '+' || stripped[0] == '-' {
		if stripped[0] == '-' {
			sign = -1
		}
		i = 1
	}
	if i >= len(stripped) {
		return 0, false
	}
	var n int64
	for ; i < len(stripped); i++ {
		c := stripped[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return sign * n, true
}
