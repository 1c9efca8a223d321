package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReceiptStore appends incoming payment notifications to payment_receipt.
// The table is an audit log: rows are never updated or deleted.
type ReceiptStore struct {
	pool *pgxpool.Pool
}

func NewReceiptStore(pool *pgxpool.Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

const insertReceiptSQL = `
	INSERT INTO mavryk.payment_receipt (ma_don_hang, ngay_thanh_toan, so_tien, nguoi_gui, noi_dung_ck)
	VALUES ($1, $2, $3, $4, $5)`

func (s *ReceiptStore) Insert(ctx context.Context, r Receipt) error {
	_, err := s.pool.Exec(ctx, insertReceiptSQL,
		r.OrderCodes, r.PaidOn.Format("2006/01/02"), r.Amount, r.Sender, r.Description)
	return err
}
