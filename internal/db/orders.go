package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
	id, id_don_hang, san_pham, thong_tin_san_pham, khach_hang, link_lien_he,
	slot, ngay_dang_ki, so_ngay_da_dang_ki, het_han, nguon, gia_nhap, gia_ban,
	note, tinh_trang, check_flag`

// GetByCode fetches an order by its business code, case-insensitively.
func (s *OrderStore) GetByCode(ctx context.Context, code string) (*Order, error) {
	query := `SELECT` + orderColumns + `
		FROM mavryk.order_list
		WHERE LOWER(id_don_hang) = LOWER($1)
		LIMIT 1`
	order, err := scanOrder(s.pool.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, code)
	}
	return order, err
}

type RenewParams struct {
	Code         string
	RegisteredOn string // DB date format
	DurationDays int
	ExpiresOn    string // DB date format
	ImportPrice  int64
	SalePrice    int64
	Status       OrderStatus
	Checked      bool
}

// Renew applies a full renewal in one UPDATE so there is never partial
// renewal state visible to concurrent readers.
func (s *OrderStore) Renew(ctx context.Context, p RenewParams) error {
	query := `
		UPDATE mavryk.order_list
		SET ngay_dang_ki = $1,
		    so_ngay_da_dang_ki = $2,
		    het_han = $3,
		    gia_nhap = $4,
		    gia_ban = $5,
		    tinh_trang = $6,
		    check_flag = $7
		WHERE LOWER(id_don_hang) = LOWER($8)`
	tag, err := s.pool.Exec(ctx, query,
		p.RegisteredOn, fmt.Sprintf("%d", p.DurationDays), p.ExpiresOn,
		p.ImportPrice, p.SalePrice, string(p.Status), p.Checked, p.Code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, p.Code)
	}
	return nil
}

// Create inserts a freshly priced order.
func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	query := `
		INSERT INTO mavryk.order_list (
			id_don_hang, san_pham, thong_tin_san_pham, khach_hang,
			link_lien_he, slot, ngay_dang_ki, so_ngay_da_dang_ki, het_han,
			nguon, gia_nhap, gia_ban, note, tinh_trang, check_flag
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	return s.pool.QueryRow(ctx, query,
		order.Code, order.Product, order.Description, order.CustomerName,
		order.CustomerLink, order.Slot, order.RegisteredOn,
		fmt.Sprintf("%d", order.DurationDays), order.ExpiresOn, order.Source,
		order.ImportPrice, order.SalePrice, order.Note, string(order.Status),
		order.Checked,
	).Scan(&order.ID)
}

// UnpaidIDsForSource returns the ids and import-price sum of unchecked,
// unpaid orders belonging to a supplier. Source names are compared with a
// leading @ stripped, matching how operators enter them.
func (s *OrderStore) UnpaidIDsForSource(ctx context.Context, sourceName string) ([]int64, int64, error) {
	query := `
		SELECT id, COALESCE(gia_nhap, 0)
		FROM mavryk.order_list
		WHERE LOWER(REGEXP_REPLACE(TRIM(nguon), '^@', '')) = LOWER(REGEXP_REPLACE(TRIM($1), '^@', ''))
		  AND (check_flag IS NULL OR check_flag = FALSE)
		  AND LOWER(COALESCE(tinh_trang, '')) = LOWER($2)
		ORDER BY id ASC`
	rows, err := s.pool.Query(ctx, query, sourceName, string(StatusUnpaid))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ids []int64
	var total int64
	for rows.Next() {
		var id, giaNhap int64
		if err := rows.Scan(&id, &giaNhap); err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
		total += giaNhap
	}
	return ids, total, rows.Err()
}

// MarkPaidByIDs flips a batch of orders to paid and checked after the
// supplier payment round is confirmed.
func (s *OrderStore) MarkPaidByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE mavryk.order_list
		SET check_flag = TRUE, tinh_trang = $1
		WHERE id = ANY($2)`
	_, err := s.pool.Exec(ctx, query, string(StatusPaid), ids)
	return err
}

// ActivePaid lists every paid order, the pool the due-date scanner walks.
func (s *OrderStore) ActivePaid(ctx context.Context) ([]*Order, error) {
	query := `SELECT` + orderColumns + `
		FROM mavryk.order_list
		WHERE LOWER(tinh_trang) = LOWER($1)
		ORDER BY het_han ASC`
	rows, err := s.pool.Query(ctx, query, string(StatusPaid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// MarkNeedsRenewal flags a batch of orders as due so the renewal reminder
// shows up in listings until a payment arrives.
func (s *OrderStore) MarkNeedsRenewal(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	query := `
		UPDATE mavryk.order_list
		SET tinh_trang = $1
		WHERE id_don_hang = ANY($2)`
	_, err := s.pool.Exec(ctx, query, string(StatusNeedsRenewal), codes)
	return err
}

// DueForRenewal lists orders flagged as needing renewal, oldest expiry
// first. Day filtering happens in the caller because the stored dates are
// text in more than one format.
func (s *OrderStore) DueForRenewal(ctx context.Context, limit int) ([]*Order, error) {
	query := `SELECT` + orderColumns + `
		FROM mavryk.order_list
		WHERE LOWER(tinh_trang) = LOWER($1)
		ORDER BY het_han ASC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, query, string(StatusNeedsRenewal), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		order     Order
		desc      pgtype.Text
		customer  pgtype.Text
		link      pgtype.Text
		slot      pgtype.Text
		regOn     pgtype.Text
		duration  pgtype.Text
		expires   pgtype.Text
		source    pgtype.Text
		giaNhap   pgtype.Int8
		giaBan    pgtype.Int8
		note      pgtype.Text
		status    pgtype.Text
		checkFlag pgtype.Bool
	)
	err := row.Scan(&order.ID, &order.Code, &order.Product, &desc, &customer,
		&link, &slot, &regOn, &duration, &expires, &source, &giaNhap, &giaBan,
		&note, &status, &checkFlag)
	if err != nil {
		return nil, err
	}

	order.Description = desc.String
	order.CustomerName = customer.String
	order.CustomerLink = link.String
	order.Slot = slot.String
	order.RegisteredOn = regOn.String
	order.DurationDays = parseIntText(duration.String)
	order.ExpiresOn = expires.String
	order.Source = source.String
	order.ImportPrice = giaNhap.Int64
	order.SalePrice = giaBan.Int64
	order.Note = note.String
	order.Status = OrderStatus(status.String)
	order.Checked = checkFlag.Bool
	return &order, nil
}

// parseIntText tolerates the legacy text storage of numeric columns.
func parseIntText(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			continue
		}
		n = n*10 + int(c-'0')
	}
	return n
}
