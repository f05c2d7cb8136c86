package constants

import "strings"

// TariffFlag is the scarcity-pricing surcharge level printed on the bill.
type TariffFlag string

const (
	FlagGreen  TariffFlag = "verde"
	FlagYellow TariffFlag = "amarela"
	FlagRed1   TariffFlag = "vermelha 1"
	FlagRed2   TariffFlag = "vermelha 2"
)

// CanonicalizeFlag maps distributor spellings onto the canonical flag values.
// OCR output varies a lot here ("Bandeira Vermelha - Patamar 2", "VERMELHA P1").
func CanonicalizeFlag(input string) (TariffFlag, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	switch {
	case strings.Contains(normalized, "verde"):
		return FlagGreen, true
	case strings.Contains(normalized, "amarela"):
		return FlagYellow, true
	case strings.Contains(normalized, "vermelha"):
		if strings.Contains(normalized, "2") {
			return FlagRed2, true
		}
		return FlagRed1, true
	}
	return "", false
}

// IsRedFlag reports whether the given flag text is any red tier.
func IsRedFlag(input string) bool {
	flag, ok := CanonicalizeFlag(input)
	return ok && (flag == FlagRed1 || flag == FlagRed2)
}
