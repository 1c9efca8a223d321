package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mavrykpremium/orderbot/internal/models"
)

var ErrSupplyRoundNotFound = errors.New("supply payment round not found")

// SupplyLedgerStore tracks what is owed to each supplier. A "round" is one
// payment_supply row: webhooks accumulate expected amounts into the latest
// unpaid round, and the admin settles it by marking the round paid.
type SupplyLedgerStore struct {
	pool   *pgxpool.Pool
	orders *OrderStore
}

func NewSupplyLedgerStore(pool *pgxpool.Pool, orders *OrderStore) *SupplyLedgerStore {
	return &SupplyLedgerStore{pool: pool, orders: orders}
}

// The merge-vs-insert decision reads the supplier's most recent row
// regardless of status; only the status string itself decides.
const latestRoundSQL = `
	SELECT id, COALESCE(status, '')
	FROM mavryk.payment_supply
	WHERE source_id = $1
	ORDER BY id DESC
	LIMIT 1`

const insertRoundSQL = `
	INSERT INTO mavryk.payment_supply (source_id, import, round, status, paid)
	VALUES ($1, $2, $3, $4, 0)`

const topUpRoundSQL = `
	UPDATE mavryk.payment_supply
	SET import = COALESCE(import, 0) + $2
	WHERE id = $1`

// TopUpImport adds amount to the supplier's most recent round when that
// round is still unpaid, otherwise opens a fresh round dated today.
func (s *SupplyLedgerStore) TopUpImport(ctx context.Context, sourceID, amount int64, now time.Time) error {
	var (
		roundID int64
		status  string
	)
	err := s.pool.QueryRow(ctx, latestRoundSQL, sourceID).Scan(&roundID, &status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return err
	case strings.EqualFold(status, string(models.StatusUnpaid)):
		_, err = s.pool.Exec(ctx, topUpRoundSQL, roundID, amount)
		return err
	}

	_, err = s.pool.Exec(ctx, insertRoundSQL,
		sourceID, amount, roundDate(now), string(models.StatusUnpaid))
	return err
}

const listPendingSQL = `
	SELECT ps.id, ps.source_id, COALESCE(sp.source_name, ''),
	       COALESCE(sp.number_bank, ''), COALESCE(sp.bin_bank, ''),
	       COALESCE(ps.import, 0), COALESCE(ps.round, ''),
	       ps.status, COALESCE(ps.paid, 0)
	FROM mavryk.payment_supply ps
	JOIN mavryk.supply sp ON sp.id = ps.source_id
	WHERE LOWER(ps.status) = LOWER($1)
	ORDER BY ps.id ASC`

// ListPending returns every unpaid round joined with the supplier's bank
// details, plus that supplier's current unpaid order ids and total, so the
// ledger figure can be checked against live order data.
func (s *SupplyLedgerStore) ListPending(ctx context.Context) ([]models.PendingSupply, error) {
	rows, err := s.pool.Query(ctx, listPendingSQL, string(models.StatusUnpaid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []models.PendingSupply
	for rows.Next() {
		var p models.PendingSupply
		if err := rows.Scan(
			&p.Payment.ID, &p.Payment.SourceID, &p.Payment.SourceName,
			&p.Payment.BankNumber, &p.Payment.BankCode,
			&p.Payment.ExpectedAmount, &p.Payment.RoundLabel,
			&p.Payment.Status, &p.Payment.PaidAmount,
		); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range pending {
		ids, sum, err := s.orders.UnpaidIDsForSource(ctx, pending[i].Payment.SourceName)
		if err != nil {
			return nil, err
		}
		pending[i].OrderIDs = ids
		pending[i].OrderSum = sum
	}
	return pending, nil
}

const markPaidSQL = `
	UPDATE mavryk.payment_supply
	SET status = $2,
	    paid = $3,
	    round = CASE WHEN COALESCE(round, '') = '' THEN $4
	                 ELSE round || ' - ' || $4 END
	WHERE id = $1 AND LOWER(status) = LOWER($5)
	RETURNING id, source_id, COALESCE(import, 0), COALESCE(round, ''), status, COALESCE(paid, 0)`

// MarkPaid closes a round: records the settled amount and appends today's
// date to the round label.
func (s *SupplyLedgerStore) MarkPaid(ctx context.Context, roundID, paidAmount int64, now time.Time) (*SupplyPayment, error) {
	var (
		p     SupplyPayment
		label pgtype.Text
	)
	err := s.pool.QueryRow(ctx, markPaidSQL,
		roundID, string(models.StatusPaid), paidAmount, roundDate(now), string(models.StatusUnpaid)).Scan(
		&p.ID, &p.SourceID, &p.ExpectedAmount, &label, &p.Status, &p.PaidAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", ErrSupplyRoundNotFound, roundID)
	}
	if err != nil {
		return nil, err
	}
	p.RoundLabel = label.String
	return &p, nil
}

func roundDate(now time.Time) string {
	return now.Format("02/01/2006")
}
