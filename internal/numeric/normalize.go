// Package numeric normalizes values coming back from the vision model.
// OCR output is noisy: currency symbols, thousands grouping, Brazilian comma
// decimals, stray whitespace. This package is the single point that keeps
// garbage strings from silently becoming 0 or NaN downstream.
package numeric

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reNonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// ToNumber converts a model-provided value into a finite float64.
// ok is false when the value is absent, empty, or unparseable; absent is
// never coerced to zero.
//
// Locale disambiguation: when a string carries both "." and ",", the dot is a
// thousands separator and the comma the decimal separator (Brazilian
// convention, "1.234,56"). A lone comma is a decimal separator. A lone dot is
// left as-is, which is correct for both conventions.
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return ToNumber(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		return parseString(v)
	}
	return 0, false
}

func parseString(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	hasDot := strings.Contains(raw, ".")
	hasComma := strings.Contains(raw, ",")

	normalized := raw
	if hasDot && hasComma {
		normalized = strings.ReplaceAll(normalized, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
	} else if hasComma {
		normalized = strings.ReplaceAll(normalized, ",", ".")
	}

	cleaned := reNonNumeric.ReplaceAllString(normalized, "")
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return 0, false
	}

	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

// ToInt converts like ToNumber and truncates toward zero. No rounding.
func ToInt(value any) (int, bool) {
	n, ok := ToNumber(value)
	if !ok {
		return 0, false
	}
	return int(math.Trunc(n)), true
}

// ToNonEmptyString returns the trimmed string, absent when empty or not a
// string at all.
func ToNonEmptyString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// Pointer-returning variants feed the optional-field record directly.

func NumberPtr(value any) *float64 {
	if n, ok := ToNumber(value); ok {
		return &n
	}
	return nil
}

func IntPtr(value any) *int {
	if n, ok := ToInt(value); ok {
		return &n
	}
	return nil
}

func StringPtr(value any) *string {
	if s, ok := ToNonEmptyString(value); ok {
		return &s
	}
	return nil
}
