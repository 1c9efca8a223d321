package models

import "github.com/shopspring/decimal"

// PriceProfile holds a product's commission multipliers from product_price.
// Null multipliers in the database default to 1.0 so a missing value never
// zeroes a price.
type PriceProfile struct {
	ProductID      int64
	Product        string
	CollabPct      decimal.Decimal
	CustomerPct    decimal.Decimal
	Active         bool
	Package        string
	PackageProduct string
}

// Supplier is one row of the supply table.
type Supplier struct {
	ID         int64
	Name       string
	BankNumber string
	BankCode   string
}

// SupplyPayment is a payment_supply round for one supplier: the expected
// import amount accumulated from webhooks, and the paid/round bookkeeping.
type SupplyPayment struct {
	ID             int64
	SourceID       int64
	SourceName     string
	BankNumber     string
	BankCode       string
	ExpectedAmount int64
	RoundLabel     string
	Status         string
	PaidAmount     int64
}

// PendingSupply pairs a pending payment round with the supplier's current
// unpaid orders so the admin can compare expected vs actual totals.
type PendingSupply struct {
	Payment  SupplyPayment
	OrderIDs []int64
	OrderSum int64
}
