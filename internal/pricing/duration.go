package pricing

// Package pricing implements the order pricing and date computation rules:
// duration extraction from product codes, tiered sale-price derivation and
// the two expiry strategies.

import "regexp"

var (
	unicodeDashes   = regexp.MustCompile("[‐-―]")
	durationSuffix  = regexp.MustCompile(`(?i)-+\s*(\d+)\s*m\b`)
	durationPattern = regexp.MustCompile(`(?i)--\s*(\d+)\s*m\b`)
)

// NormalizeDuration maps unicode dash variants (en dash, em dash, horizontal
// bar) to ASCII and collapses any dash run before a month suffix to the
// canonical "--Nm" form, so codes typed from phones still match.
func NormalizeDuration(s string) string {
	s = unicodeDashes.ReplaceAllString(s, "-")
	return durationSuffix.ReplaceAllString(s, "--${1}m")
}

// ParseDurationMonths extracts the subscription length in months from a
// product code such as "Netflix--1m". The second return is false when the
// code carries no duration suffix.
func ParseDurationMonths(productCode string) (int, bool) {
	m := durationPattern.FindStringSubmatch(NormalizeDuration(productCode))
	if m == nil {
		return 0, false
	}
	months := 0
	for _, c := range m[1] {
		months = months*10 + int(c-'0')
	}
	if months == 0 {
		return 0, false
	}
	return months, true
}

// DurationDays converts a month count to the business day count: a year is
// sold as 365 days, every other month as a flat 30. This is intentionally
// not calendar-accurate.
func DurationDays(months int) int {
	if months == 12 {
		return 365
	}
	return months * 30
}

// ParseDurationDays combines ParseDurationMonths and DurationDays.
func ParseDurationDays(productCode string) (int, bool) {
	months, ok := ParseDurationMonths(productCode)
	if !ok {
		return 0, false
	}
	return DurationDays(months), true
}
