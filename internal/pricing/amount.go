package pricing

import "strings"

// NormalizeAmount parses a currency amount the way operators actually type
// them: "150k" means 150000, "1.250.000" keeps its digits, and a bare number
// under 5000 with no separator is assumed to be in thousands. Unparseable
// input yields 0.
func NormalizeAmount(raw string) int64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	isThousandK := strings.Contains(s, "k")
	hasSeparator := strings.Contains(s, ".")

	var digits strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0
	}

	var n int64
	for _, c := range digits.String() {
		n = n*10 + int64(c-'0')
	}
	switch {
	case isThousandK:
		n *= 1000
	case !hasSeparator && n < 5000:
		n *= 1000
	}
	return n
}
