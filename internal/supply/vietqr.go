package supply

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mavrykpremium/orderbot/internal/models"
)

const vietqrHost = "https://img.vietqr.io/image"

// QRLink builds a vietqr.io image URL the operator can scan to pay a
// supplier. Empty when the supplier has no bank details on file.
func QRLink(s models.Supplier, amount int64, memo string) string {
	bank := strings.TrimSpace(s.BankCode)
	account := strings.TrimSpace(s.BankNumber)
	if bank == "" || account == "" {
		return ""
	}

	q := url.Values{}
	if amount > 0 {
		q.Set("amount", fmt.Sprintf("%d", amount))
	}
	if memo != "" {
		q.Set("addInfo", memo)
	}

	link := fmt.Sprintf("%s/%s-%s-compact.png", vietqrHost, bank, account)
	if encoded := q.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return link
}
