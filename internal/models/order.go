package models

import (
	"strings"
	"time"
)

type OrderStatus string

// Status labels are stored verbatim in the shared database, so the
// Vietnamese strings are part of the schema contract.
const (
	StatusUnpaid       OrderStatus = "Chưa Thanh Toán"
	StatusPaid         OrderStatus = "Đã Thanh Toán"
	StatusNeedsRenewal OrderStatus = "Cần Gia Hạn"
)

// EqualFold reports whether s matches the given label ignoring case.
func (s OrderStatus) EqualFold(other string) bool {
	return strings.EqualFold(string(s), other)
}

// Order is one row of order_list. The business key is Code (id_don_hang),
// whose 4-character prefix encodes the pricing tier.
type Order struct {
	ID           int64       `json:"id"`
	Code         string      `json:"code"`
	Product      string      `json:"product"`
	Description  string      `json:"description"`
	CustomerName string      `json:"customer_name"`
	CustomerLink string      `json:"customer_link"`
	Slot         string      `json:"slot"`
	RegisteredOn string      `json:"registered_on"`
	DurationDays int         `json:"duration_days"`
	ExpiresOn    string      `json:"expires_on"`
	Source       string      `json:"source"`
	ImportPrice  int64       `json:"import_price"`
	SalePrice    int64       `json:"sale_price"`
	Note         string      `json:"note"`
	Status       OrderStatus `json:"status"`
	Checked      bool        `json:"checked"`
}

// RenewedOrder is the detail record returned after a successful renewal,
// with display-format dates, for the notification collaborator.
type RenewedOrder struct {
	Code         string `json:"code"`
	Product      string `json:"product"`
	Description  string `json:"description"`
	Slot         string `json:"slot"`
	RegisteredOn string `json:"registered_on"`
	ExpiresOn    string `json:"expires_on"`
	Source       string `json:"source"`
	ImportPrice  int64  `json:"import_price"`
	SalePrice    int64  `json:"sale_price"`
	Status       string `json:"status"`
}

// Receipt is one append-only payment_receipt row. Amounts are stored
// unrounded exactly as they arrived from the payment provider.
type Receipt struct {
	OrderCodes  string
	PaidOn      time.Time
	Amount      int64
	Sender      string
	Description string
}
