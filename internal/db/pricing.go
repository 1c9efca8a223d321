package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrNoSupplyPrice    = errors.New("no supply price for product and supplier")
)

// PriceStore resolves product price profiles and supplier quotes.
type PriceStore struct {
	pool *pgxpool.Pool
}

func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// ResolveProduct looks up a product price profile by name, case-insensitive
// exact match. Null multipliers default to 1.0 so a missing value never
// silently zeroes a computed price.
func (s *PriceStore) ResolveProduct(ctx context.Context, productName string) (*PriceProfile, error) {
	query := `
		SELECT id, san_pham, pct_ctv, pct_khach, COALESCE(is_active, TRUE)
		FROM mavryk.product_price
		WHERE LOWER(san_pham) = LOWER($1)
		LIMIT 1`

	var (
		profile  PriceProfile
		pctCTV   pgtype.Numeric
		pctKhach pgtype.Numeric
	)
	err := s.pool.QueryRow(ctx, query, productName).Scan(
		&profile.ProductID, &profile.Product, &pctCTV, &pctKhach, &profile.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productName)
	}
	if err != nil {
		return nil, err
	}

	profile.CollabPct = numericOrOne(pctCTV)
	profile.CustomerPct = numericOrOne(pctKhach)
	return &profile, nil
}

// HighestSupplyPrice is the MAX quote across all suppliers for a product.
// Zero means "no pricing data" and short-circuits markup computation.
func (s *PriceStore) HighestSupplyPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	query := `SELECT MAX(price) FROM mavryk.supply_price WHERE product_id = $1`

	var max pgtype.Numeric
	if err := s.pool.QueryRow(ctx, query, productID).Scan(&max); err != nil {
		return decimal.Zero, err
	}
	if !max.Valid {
		return decimal.Zero, nil
	}
	return numericToDecimal(max)
}

// SupplyPriceFor is the price the named supplier quotes for the product,
// used as the order's own import price.
func (s *PriceStore) SupplyPriceFor(ctx context.Context, productID, sourceID int64) (int64, error) {
	query := `
		SELECT price FROM mavryk.supply_price
		WHERE product_id = $1 AND source_id = $2
		LIMIT 1`

	var price pgtype.Int8
	err := s.pool.QueryRow(ctx, query, productID, sourceID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && !price.Valid) {
		return 0, ErrNoSupplyPrice
	}
	if err != nil {
		return 0, err
	}
	return price.Int64, nil
}

// SupplierIDByName resolves a supplier by name, case-insensitive exact.
func (s *PriceStore) SupplierIDByName(ctx context.Context, sourceName string) (int64, error) {
	query := `
		SELECT id FROM mavryk.supply
		WHERE LOWER(source_name) = LOWER($1)
		LIMIT 1`

	var id int64
	err := s.pool.QueryRow(ctx, query, sourceName).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrSupplierNotFound, sourceName)
	}
	return id, err
}

// ListSuppliers returns the full supplier roster in id order, which fixes
// the first-match-wins order of substring attribution.
func (s *PriceStore) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	query := `
		SELECT id, COALESCE(source_name, ''), COALESCE(number_bank, ''), COALESCE(bin_bank, '')
		FROM mavryk.supply
		ORDER BY id ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var sup Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.BankNumber, &sup.BankCode); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func numericOrOne(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.NewFromInt(1)
	}
	d, err := numericToDecimal(n)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return d
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid || n.NaN {
		return decimal.Zero, fmt.Errorf("numeric value is not representable")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
