package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warungmie/api/internal/cache"
	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/pricing"
)

// autoAdvanceAfter is how long a paid order may sit before reads assume the
// kitchen picked it up and advance it to processing.
const autoAdvanceAfter = 60 * time.Second

// Errors returned by the order service.
var (
	ErrTableRequired = errors.New("table_number is required")
	ErrInvalidItemID = errors.New("invalid item_id")
	ErrOrderNotFound = errors.New("order not found")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	UpsertTable(ctx context.Context, arg database.UpsertTableParams) (database.Table, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderLine(ctx context.Context, arg database.CreateOrderLineParams) (database.OrderLine, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListActiveOrders(ctx context.Context) ([]database.Order, error)
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]database.OrderLine, error)
	StartQueuedLines(ctx context.Context, arg database.StartQueuedLinesParams) (int64, error)
	FinishCookingLines(ctx context.Context, arg database.FinishCookingLinesParams) (int64, error)
	CountUnfinishedLines(ctx context.Context, orderID uuid.UUID) (int64, error)
	ListTransactionsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Transaction, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Quoter prices a cart. Satisfied by *pricing.Estimator.
type Quoter interface {
	Quote(ctx context.Context, lines []pricing.LineInput) (*pricing.Quote, error)
}

// Notifier pushes order events to subscribed displays. Best effort; the
// polling endpoints remain the source of truth.
type Notifier interface {
	OrderUpdated(orderID uuid.UUID, status database.OrderStatus)
}

// NopNotifier drops all events.
type NopNotifier struct{}

func (NopNotifier) OrderUpdated(uuid.UUID, database.OrderStatus) {}

// PlaceOrderRequest is the validated input for placing an order.
type PlaceOrderRequest struct {
	TableNumber  string
	CustomerName string
	Lines        []PlaceOrderLine
}

// PlaceOrderLine is a single cart line.
type PlaceOrderLine struct {
	ItemID   string
	Quantity int32
	Note     string
}

// OrderDetail is an order with its lines, payment attempts, and the derived
// ETA/lateness pair. Exactly one of EtaMs and LateMs can be nonzero.
type OrderDetail struct {
	Order        database.Order
	Lines        []database.OrderLine
	Transactions []database.Transaction
	EtaMs        int64
	LateMs       int64
}

// QueueEntry is one active order on the kitchen display.
type QueueEntry struct {
	Order  database.Order
	Lines  []database.OrderLine
	WaitMs int64
	LateMs int64
}

// QueueSnapshot is the kitchen's backlog view: active orders oldest first,
// plus the delay count callers use to speed up their refresh cadence.
type QueueSnapshot struct {
	Orders      []QueueEntry
	TotalActive int
	TotalDelay  int
}

// OrderService owns the order lifecycle. All writes run as one atomic
// read-modify-write per order: begin tx, lock the order row, mutate, commit.
type OrderService struct {
	store      OrderStore
	pool       TxBeginner
	newStore   NewOrderStore
	quoter     Quoter
	queueCache cache.QueueCache
	notifier   Notifier
	now        func() time.Time
}

// NewOrderService creates an OrderService. queueCache, notifier, and now may
// be nil; they default to a no-op cache, a no-op notifier, and time.Now.
func NewOrderService(store OrderStore, pool TxBeginner, newStore NewOrderStore, quoter Quoter, queueCache cache.QueueCache, notifier Notifier, now func() time.Time) *OrderService {
	if queueCache == nil {
		queueCache = cache.Noop{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &OrderService{
		store:      store,
		pool:       pool,
		newStore:   newStore,
		quoter:     quoter,
		queueCache: queueCache,
		notifier:   notifier,
		now:        now,
	}
}

// Place prices the cart and creates the order with all lines queued, in
// pending_payment, atomically. The table record is upserted on the way.
// The quote's prices and ETA are frozen onto the order; later catalog edits
// never touch it.
func (s *OrderService) Place(ctx context.Context, req PlaceOrderRequest) (*database.Order, error) {
	if req.TableNumber == "" {
		return nil, ErrTableRequired
	}

	lines := make([]pricing.LineInput, len(req.Lines))
	for i, line := range req.Lines {
		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrInvalidItemID)
		}
		lines[i] = pricing.LineInput{ItemID: itemID, Quantity: line.Quantity, Note: line.Note}
	}

	// Pricing is pure and reads only the catalog; it runs before the
	// write transaction opens.
	quote, err := s.quoter.Quote(ctx, lines)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.UpsertTable(ctx, database.UpsertTableParams{
		TableNumber: req.TableNumber,
		QRCode:      req.TableNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert table: %w", err)
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableID:      table.ID,
		CustomerName: req.CustomerName,
		QueueNumber:  newQueueNumber(),
		Subtotal:     decimalToNumeric(quote.Subtotal),
		TaxAmount:    decimalToNumeric(quote.Tax),
		PlacedAt:     quote.QuotedAt,
		EstimatedAt:  quote.EstimatedCompletion,
		Status:       database.OrderStatusPendingPayment,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for i, snap := range quote.Snapshots {
		note := pgtype.Text{}
		if snap.Note != "" {
			note = pgtype.Text{String: snap.Note, Valid: true}
		}
		if _, err := store.CreateOrderLine(ctx, database.CreateOrderLineParams{
			OrderID:     order.ID,
			ItemID:      snap.ItemID,
			Quantity:    snap.Quantity,
			Note:        note,
			PriceAtTime: decimalToNumeric(snap.PriceAtTime),
			Status:      database.LineStatusQueued,
		}); err != nil {
			return nil, fmt.Errorf("create order line[%d]: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.afterWrite(ctx, order)
	return &order, nil
}

// MarkPaid advances pending_payment to paid. Calling it on an order that is
// already paid or later is a no-op, so repeated settlement callbacks are
// harmless.
func (s *OrderService) MarkPaid(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	return s.withLockedOrder(ctx, orderID, func(ctx context.Context, store OrderStore, order database.Order) (database.Order, error) {
		if order.Status != database.OrderStatusPendingPayment {
			return order, nil
		}
		return store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         order.ID,
			Status:     database.OrderStatusPaid,
			FromStatus: database.OrderStatusPendingPayment,
		})
	})
}

// StartCooking moves a paid order to processing and every queued line to
// cooking, stamping the cooking start time. Calling it on an order in any
// other status still starts the queued lines but leaves the status alone.
func (s *OrderService) StartCooking(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	return s.withLockedOrder(ctx, orderID, func(ctx context.Context, store OrderStore, order database.Order) (database.Order, error) {
		if order.Status == database.OrderStatusPaid {
			updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
				ID:         order.ID,
				Status:     database.OrderStatusProcessing,
				FromStatus: database.OrderStatusPaid,
			})
			if err != nil {
				return order, fmt.Errorf("advance to processing: %w", err)
			}
			order = updated
		}

		if _, err := store.StartQueuedLines(ctx, database.StartQueuedLinesParams{
			OrderID:   order.ID,
			StartedAt: s.now(),
		}); err != nil {
			return order, fmt.Errorf("start queued lines: %w", err)
		}
		return order, nil
	})
}

// FinishOrder moves every cooking line to done with a finish stamp. The
// order completes only when no line remains queued or cooking; a partial
// finish leaves it in processing. Idempotent: with nothing cooking and
// nothing queued the second call changes nothing.
func (s *OrderService) FinishOrder(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	return s.withLockedOrder(ctx, orderID, func(ctx context.Context, store OrderStore, order database.Order) (database.Order, error) {
		if _, err := store.FinishCookingLines(ctx, database.FinishCookingLinesParams{
			OrderID:    order.ID,
			FinishedAt: s.now(),
		}); err != nil {
			return order, fmt.Errorf("finish cooking lines: %w", err)
		}

		remaining, err := store.CountUnfinishedLines(ctx, order.ID)
		if err != nil {
			return order, fmt.Errorf("count unfinished lines: %w", err)
		}
		if remaining > 0 || order.Status == database.OrderStatusCompleted {
			return order, nil
		}

		updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         order.ID,
			Status:     database.OrderStatusCompleted,
			FromStatus: order.Status,
		})
		if err != nil {
			return order, fmt.Errorf("complete order: %w", err)
		}
		return updated, nil
	})
}

// Get reads an order with its lines and payment attempts, computing ETA and
// lateness against the injected clock. It also applies the lazy status
// correction: a paid order older than 60 seconds becomes processing, and an
// order whose lines are all done becomes completed. Corrections persist via
// a compare-and-set UPDATE, so concurrent pollers never double-advance.
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lines, err := s.store.ListOrderLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}

	now := s.now()
	if corrected := deriveStatus(order, lines, now); corrected != order.Status {
		updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         order.ID,
			Status:     corrected,
			FromStatus: order.Status,
		})
		switch {
		case err == nil:
			order = updated
			s.afterWrite(ctx, order)
		case errors.Is(err, pgx.ErrNoRows):
			// Lost the race to a concurrent poller; its correction stands.
			order, err = s.store.GetOrder(ctx, orderID)
			if err != nil {
				return nil, fmt.Errorf("reread order: %w", err)
			}
		default:
			return nil, fmt.Errorf("persist status correction: %w", err)
		}
	}

	txs, err := s.store.ListTransactionsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	eta, late := etaLate(order.EstimatedAt, now)
	return &OrderDetail{
		Order:        order,
		Lines:        lines,
		Transactions: txs,
		EtaMs:        eta,
		LateMs:       late,
	}, nil
}

// ActiveQueue returns every paid or processing order, oldest first, with
// per-order wait and lateness. Read-only; status corrections belong to Get
// and the sweeper.
func (s *OrderService) ActiveQueue(ctx context.Context) (*QueueSnapshot, error) {
	orders, err := s.store.ListActiveOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}

	now := s.now()
	entries := make([]QueueEntry, len(orders))
	totalDelay := 0
	for i, order := range orders {
		lines, err := s.store.ListOrderLines(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("list order lines: %w", err)
		}
		_, late := etaLate(order.EstimatedAt, now)
		if late > 0 {
			totalDelay++
		}
		entries[i] = QueueEntry{
			Order:  order,
			Lines:  lines,
			WaitMs: now.Sub(order.PlacedAt).Milliseconds(),
			LateMs: late,
		}
	}

	return &QueueSnapshot{
		Orders:      entries,
		TotalActive: len(entries),
		TotalDelay:  totalDelay,
	}, nil
}

// withLockedOrder runs fn inside a transaction holding the order's row lock.
func (s *OrderService) withLockedOrder(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context, store OrderStore, order database.Order) (database.Order, error)) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("lock order: %w", err)
	}

	order, err = fn(ctx, store, order)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.afterWrite(ctx, order)
	return order, nil
}

// afterWrite drops the cached queue snapshot and pushes the new state to
// subscribed displays.
func (s *OrderService) afterWrite(ctx context.Context, order database.Order) {
	s.queueCache.Invalidate(ctx)
	s.notifier.OrderUpdated(order.ID, order.Status)
}

// deriveStatus recomputes what the stored status should be at read time.
// Forward-only: the result is always equal to or later than the input.
func deriveStatus(order database.Order, lines []database.OrderLine, now time.Time) database.OrderStatus {
	status := order.Status
	if status == database.OrderStatusPaid && now.Sub(order.PlacedAt) > autoAdvanceAfter {
		status = database.OrderStatusProcessing
	}

	allDone := len(lines) > 0
	for _, line := range lines {
		if line.Status != database.LineStatusDone {
			allDone = false
			break
		}
	}
	if allDone {
		status = database.OrderStatusCompleted
	}
	return status
}

// etaLate splits the distance to the completion estimate into remaining and
// overdue milliseconds. At most one of the two is nonzero.
func etaLate(estimated, now time.Time) (etaMs, lateMs int64) {
	d := estimated.Sub(now).Milliseconds()
	if d >= 0 {
		return d, 0
	}
	return 0, -d
}

// newQueueNumber returns the display-only three-digit ticket number.
// Collisions are fine; nothing orders by it.
func newQueueNumber() string {
	return strconv.Itoa(rand.IntN(900) + 100)
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
