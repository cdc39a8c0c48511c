package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const transactionColumns = `id, order_id, payment_method, payment_status, external_id, paid_at, created_at`

type CreateTransactionParams struct {
	OrderID       uuid.UUID
	PaymentMethod string
	PaymentStatus PaymentStatus
	ExternalID    string
	PaidAt        pgtype.Timestamptz
}

const createTransaction = `
INSERT INTO transactions (order_id, payment_method, payment_status, external_id, paid_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	var t Transaction
	err := q.db.QueryRow(ctx, createTransaction,
		arg.OrderID, arg.PaymentMethod, arg.PaymentStatus, arg.ExternalID, arg.PaidAt,
	).Scan(&t.ID, &t.OrderID, &t.PaymentMethod, &t.PaymentStatus, &t.ExternalID, &t.PaidAt, &t.CreatedAt)
	return t, err
}

type MarkTransactionsSuccessParams struct {
	OrderID    uuid.UUID
	ExternalID string
	PaidAt     time.Time
}

const markTransactionsSuccess = `
UPDATE transactions
SET payment_status = 'success', paid_at = $3
WHERE order_id = $1 AND external_id = $2 AND payment_status = 'pending'
`

// MarkTransactionsSuccess settles every pending attempt recorded under the
// gateway reference. Already-settled rows keep their original paid_at, which
// makes verification re-runs idempotent.
func (q *Queries) MarkTransactionsSuccess(ctx context.Context, arg MarkTransactionsSuccessParams) (int64, error) {
	tag, err := q.db.Exec(ctx, markTransactionsSuccess, arg.OrderID, arg.ExternalID, arg.PaidAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listTransactionsByOrder = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE order_id = $1
ORDER BY created_at ASC
`

func (q *Queries) ListTransactionsByOrder(ctx context.Context, orderID uuid.UUID) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactionsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.OrderID, &t.PaymentMethod, &t.PaymentStatus, &t.ExternalID, &t.PaidAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
