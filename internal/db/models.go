package db

import "github.com/mavrykpremium/orderbot/internal/models"

type Order = models.Order
type OrderStatus = models.OrderStatus
type PriceProfile = models.PriceProfile
type Supplier = models.Supplier
type SupplyPayment = models.SupplyPayment
type Receipt = models.Receipt

const (
	StatusUnpaid       = models.StatusUnpaid
	StatusPaid         = models.StatusPaid
	StatusNeedsRenewal = models.StatusNeedsRenewal
)
