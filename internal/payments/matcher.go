// Package payments turns bank transfer notifications into renewals: it pulls
// order codes out of free-form transfer descriptions, attributes supplier
// transfers, and drives the renewal engine per matched code.
package payments

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mavrykpremium/orderbot/internal/models"
)

// Uppercase prefix only and no word boundaries: bank descriptions run codes
// straight into reference digits, while lowercase "mav" in free text is not
// a code.
var orderCodePattern = regexp.MustCompile(`MAV\w{5,}`)

// ExtractOrderCodes finds every order code in a transfer description. Codes
// are uppercased, deduplicated and sorted so a replayed description always
// yields the same list.
func ExtractOrderCodes(content string) []string {
	matches := orderCodePattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var codes []string
	for _, m := range matches {
		code := strings.ToUpper(m)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// FindSupplier attributes a transfer to a supplier when the description
// mentions a roster name, case-insensitive substring. The first roster entry
// that matches wins.
func FindSupplier(content string, roster []models.Supplier) (models.Supplier, bool) {
	lowered := strings.ToLower(content)
	for _, s := range roster {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			continue
		}
		if strings.Contains(lowered, name) {
			return s, true
		}
	}
	return models.Supplier{}, false
}
