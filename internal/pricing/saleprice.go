package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Order-code prefixes encode the customer pricing tier.
const (
	PrefixRetail = "MAVL"
	PrefixCollab = "MAVC"
	PrefixPromo  = "MAVK"
)

// PriceInputs is everything the tier computation needs. HighestSupply is the
// MAX supply price across all suppliers (the markup base), which is distinct
// from the import price actually paid to the order's own supplier.
type PriceInputs struct {
	OrderCode     string
	ImportPrice   int64
	HighestSupply decimal.Decimal
	CollabPct     decimal.Decimal
	CustomerPct   decimal.Decimal
}

// Quote is the outcome of a sale-price computation. Degraded marks the
// deliberate best-effort fallback to the import price when pricing data was
// unusable; callers treat it as a valid quote, not an error.
type Quote struct {
	SalePrice int64
	Degraded  bool
}

// ComputeSalePrice derives the sale price for an order code. Tier rules:
//
//	MAVK (promo):  sale = import price, overriding everything else
//	MAVC (collab): sale = highest supply price × collab multiplier
//	MAVL (retail): sale = highest × collab multiplier × customer multiplier
//	anything else, or no supply pricing data: sale = import price
//
// The result is truncated to whole currency units and rounded up to the next
// thousand.
func ComputeSalePrice(in PriceInputs) Quote {
	sale := decimal.NewFromInt(in.ImportPrice)
	degraded := false

	prefix := tierPrefix(in.OrderCode)
	if in.HighestSupply.IsPositive() {
		// Multipliers arrive already defaulted: only a NULL column means
		// "no multiplier", and that default belongs to the row scan. A
		// stored zero is a real zero and zeroes the sale.
		switch prefix {
		case PrefixCollab:
			sale = in.HighestSupply.Mul(in.CollabPct)
		case PrefixRetail:
			sale = in.HighestSupply.Mul(in.CollabPct).Mul(in.CustomerPct)
		}
	} else if prefix == PrefixCollab || prefix == PrefixRetail {
		// A markup tier without supply pricing data falls back to the
		// import price; flagged so callers can tell the paths apart.
		degraded = true
	}
	// Promo always wins, even over a computed tier price.
	if prefix == PrefixPromo {
		sale = decimal.NewFromInt(in.ImportPrice)
		degraded = false
	}

	return Quote{
		SalePrice: RoundUpToThousand(sale.IntPart()),
		Degraded:  degraded,
	}
}

// RoundUpToThousand rounds a currency amount up to the nearest multiple of
// 1000. Non-positive amounts collapse to 0.
func RoundUpToThousand(v int64) int64 {
	if v <= 0 {
		return 0
	}
	return ((v + 999) / 1000) * 1000
}

func tierPrefix(orderCode string) string {
	code := strings.ToUpper(strings.TrimSpace(orderCode))
	if len(code) < 4 {
		return ""
	}
	return code[:4]
}

