package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_id, customer_name, queue_number, subtotal, tax_amount, placed_at, estimated_at, status`

type CreateOrderParams struct {
	TableID      uuid.UUID
	CustomerName string
	QueueNumber  string
	Subtotal     pgtype.Numeric
	TaxAmount    pgtype.Numeric
	PlacedAt     time.Time
	EstimatedAt  time.Time
	Status       OrderStatus
}

const createOrder = `
INSERT INTO orders (table_id, customer_name, queue_number, subtotal, tax_amount, placed_at, estimated_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, createOrder,
		arg.TableID, arg.CustomerName, arg.QueueNumber, arg.Subtotal, arg.TaxAmount,
		arg.PlacedAt, arg.EstimatedAt, arg.Status,
	).Scan(&o.ID, &o.TableID, &o.CustomerName, &o.QueueNumber, &o.Subtotal, &o.TaxAmount, &o.PlacedAt, &o.EstimatedAt, &o.Status)
	return o, err
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, getOrder, id).
		Scan(&o.ID, &o.TableID, &o.CustomerName, &o.QueueNumber, &o.Subtotal, &o.TaxAmount, &o.PlacedAt, &o.EstimatedAt, &o.Status)
	return o, err
}

const getOrderForUpdate = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
FOR NO KEY UPDATE
`

// GetOrderForUpdate locks the order row for the duration of the enclosing
// transaction, serializing concurrent lifecycle writes on the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, getOrderForUpdate, id).
		Scan(&o.ID, &o.TableID, &o.CustomerName, &o.QueueNumber, &o.Subtotal, &o.TaxAmount, &o.PlacedAt, &o.EstimatedAt, &o.Status)
	return o, err
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     OrderStatus
	FromStatus OrderStatus
}

const updateOrderStatus = `
UPDATE orders
SET status = $2
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

// UpdateOrderStatus advances the status only when the stored value still
// matches FromStatus. pgx.ErrNoRows signals a lost race; re-read and retry.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.FromStatus).
		Scan(&o.ID, &o.TableID, &o.CustomerName, &o.QueueNumber, &o.Subtotal, &o.TaxAmount, &o.PlacedAt, &o.EstimatedAt, &o.Status)
	return o, err
}

const listActiveOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE status IN ('paid', 'processing')
ORDER BY placed_at ASC
`

func (q *Queries) ListActiveOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listActiveOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.TableID, &o.CustomerName, &o.QueueNumber, &o.Subtotal, &o.TaxAmount, &o.PlacedAt, &o.EstimatedAt, &o.Status); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const lineColumns = `id, order_id, item_id, quantity, note, price_at_time, status, started_at, finished_at`

type CreateOrderLineParams struct {
	OrderID     uuid.UUID
	ItemID      uuid.UUID
	Quantity    int32
	Note        pgtype.Text
	PriceAtTime pgtype.Numeric
	Status      LineStatus
}

const createOrderLine = `
INSERT INTO order_lines (order_id, item_id, quantity, note, price_at_time, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + lineColumns

func (q *Queries) CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error) {
	var l OrderLine
	err := q.db.QueryRow(ctx, createOrderLine,
		arg.OrderID, arg.ItemID, arg.Quantity, arg.Note, arg.PriceAtTime, arg.Status,
	).Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Quantity, &l.Note, &l.PriceAtTime, &l.Status, &l.StartedAt, &l.FinishedAt)
	return l, err
}

const listOrderLines = `
SELECT ` + lineColumns + `
FROM order_lines
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLines, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Quantity, &l.Note, &l.PriceAtTime, &l.Status, &l.StartedAt, &l.FinishedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type StartQueuedLinesParams struct {
	OrderID   uuid.UUID
	StartedAt time.Time
}

const startQueuedLines = `
UPDATE order_lines
SET status = 'cooking', started_at = $2
WHERE order_id = $1 AND status = 'queued'
`

// StartQueuedLines moves every queued line to cooking, stamping the cooking
// start time. Lines already cooking or done are untouched.
func (q *Queries) StartQueuedLines(ctx context.Context, arg StartQueuedLinesParams) (int64, error) {
	tag, err := q.db.Exec(ctx, startQueuedLines, arg.OrderID, arg.StartedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type FinishCookingLinesParams struct {
	OrderID    uuid.UUID
	FinishedAt time.Time
}

const finishCookingLines = `
UPDATE order_lines
SET status = 'done', finished_at = $2
WHERE order_id = $1 AND status = 'cooking'
`

func (q *Queries) FinishCookingLines(ctx context.Context, arg FinishCookingLinesParams) (int64, error) {
	tag, err := q.db.Exec(ctx, finishCookingLines, arg.OrderID, arg.FinishedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countUnfinishedLines = `
SELECT COUNT(*)
FROM order_lines
WHERE order_id = $1 AND status IN ('queued', 'cooking')
`

func (q *Queries) CountUnfinishedLines(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUnfinishedLines, orderID).Scan(&n)
	return n, err
}
