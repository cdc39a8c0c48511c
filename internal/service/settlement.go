package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warungmie/api/internal/cache"
	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/enum"
	"github.com/warungmie/api/internal/payment"
)

// demoExternalID marks transactions settled through the demo shortcut
// instead of a real gateway callback.
const demoExternalID = "demo"

// ErrInvalidMethod means the requested payment method is unknown or disabled.
var ErrInvalidMethod = errors.New("invalid payment method")

// knownMethods is every method the gateway integration supports; the
// configured list is intersected with it at construction.
var knownMethods = []string{
	enum.PaymentMethodQRIS,
	enum.PaymentMethodGoPay,
	enum.PaymentMethodShopeePay,
}

// Gateway is the payment provider port. Satisfied by *payment.Client.
type Gateway interface {
	Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResponse, error)
	Status(ctx context.Context, externalID string) (string, error)
}

// SettlementStore defines the DB methods needed by payment settlement.
// Satisfied by *database.Queries (and its WithTx variant).
type SettlementStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreateTransaction(ctx context.Context, arg database.CreateTransactionParams) (database.Transaction, error)
	MarkTransactionsSuccess(ctx context.Context, arg database.MarkTransactionsSuccessParams) (int64, error)
}

// NewSettlementStore creates a SettlementStore from a DBTX (pool or tx).
type NewSettlementStore func(db database.DBTX) SettlementStore

// ChargeResult is the outcome of a charge attempt. QRUrl is empty when the
// gateway was unreachable or unconfigured; the transaction is still recorded
// as pending so verification can settle it later.
type ChargeResult struct {
	Amount     decimal.Decimal
	Method     string
	ExternalID string
	QRUrl      string
	Actions    []payment.Action
}

// SettlementService owns payment charging and settlement. Gateway calls run
// strictly outside database transactions; a row lock is never held across
// the network.
type SettlementService struct {
	store      SettlementStore
	pool       TxBeginner
	newStore   NewSettlementStore
	gateway    Gateway
	methods    []string
	queueCache cache.QueueCache
	notifier   Notifier
	now        func() time.Time
}

// NewSettlementService creates a SettlementService. enabledMethods is
// filtered against the supported set; queueCache, notifier, and now may be
// nil with the same defaults as NewOrderService.
func NewSettlementService(store SettlementStore, pool TxBeginner, newStore NewSettlementStore, gateway Gateway, enabledMethods []string, queueCache cache.QueueCache, notifier Notifier, now func() time.Time) *SettlementService {
	methods := make([]string, 0, len(enabledMethods))
	for _, m := range enabledMethods {
		if slices.Contains(knownMethods, m) {
			methods = append(methods, m)
		}
	}
	if queueCache == nil {
		queueCache = cache.Noop{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &SettlementService{
		store:      store,
		pool:       pool,
		newStore:   newStore,
		gateway:    gateway,
		methods:    methods,
		queueCache: queueCache,
		notifier:   notifier,
		now:        now,
	}
}

// EnabledMethods lists the payment methods customers may pick from.
func (s *SettlementService) EnabledMethods() []string {
	return slices.Clone(s.methods)
}

// CreateCharge asks the gateway for payment instructions and records a
// pending transaction for the order. A gateway failure degrades rather than
// fails: the pending transaction is recorded without a QR and the caller is
// expected to retry verification.
func (s *SettlementService) CreateCharge(ctx context.Context, orderID uuid.UUID, method string) (*ChargeResult, error) {
	if !slices.Contains(s.methods, method) {
		return nil, ErrInvalidMethod
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	amount := numericToDecimal(order.Subtotal).Add(numericToDecimal(order.TaxAmount))
	result := &ChargeResult{
		Amount:     amount,
		Method:     method,
		ExternalID: fmt.Sprintf("order-%s-%d", order.ID, s.now().UnixMilli()),
	}

	resp, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		Method:      method,
		ExternalID:  result.ExternalID,
		GrossAmount: amount.Round(0).IntPart(),
	})
	switch {
	case errors.Is(err, payment.ErrNotConfigured):
		// Degraded mode: no gateway key. The pending transaction still
		// lets the demo settle the order by hand.
	case err != nil:
		log.Printf("ERROR: gateway charge for order %s: %v (recording pending transaction without QR)", order.ID, err)
	default:
		result.ExternalID = resp.ExternalID
		result.QRUrl = resp.QRUrl
		result.Actions = resp.Actions
	}

	if _, err := s.store.CreateTransaction(ctx, database.CreateTransactionParams{
		OrderID:       order.ID,
		PaymentMethod: method,
		PaymentStatus: database.PaymentStatusPending,
		ExternalID:    result.ExternalID,
	}); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	return result, nil
}

// Verify polls the gateway for the transaction's status and, on a settled
// result, marks the pending transactions successful and advances the order
// to paid in one transaction. A non-settled status is not an error; it
// returns false and the caller polls again. Safe to call repeatedly after
// settlement.
func (s *SettlementService) Verify(ctx context.Context, externalID string, orderID uuid.UUID) (bool, error) {
	status, err := s.gateway.Status(ctx, externalID)
	if err != nil {
		if !errors.Is(err, payment.ErrNotConfigured) {
			log.Printf("ERROR: gateway status for %s: %v", externalID, err)
		}
		return false, nil
	}
	if !settledStatus(status) {
		return false, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrOrderNotFound
		}
		return false, fmt.Errorf("lock order: %w", err)
	}

	if _, err := store.MarkTransactionsSuccess(ctx, database.MarkTransactionsSuccessParams{
		OrderID:    order.ID,
		ExternalID: externalID,
		PaidAt:     s.now(),
	}); err != nil {
		return false, fmt.Errorf("mark transactions success: %w", err)
	}

	if order.Status == database.OrderStatusPendingPayment {
		updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         order.ID,
			Status:     database.OrderStatusPaid,
			FromStatus: database.OrderStatusPendingPayment,
		})
		if err != nil {
			return false, fmt.Errorf("advance to paid: %w", err)
		}
		order = updated
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	s.queueCache.Invalidate(ctx)
	s.notifier.OrderUpdated(order.ID, order.Status)
	return true, nil
}

// SimulateSuccess settles an order without touching the gateway: it records
// a successful demo transaction and advances pending_payment to paid.
func (s *SettlementService) SimulateSuccess(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
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

	if _, err := store.CreateTransaction(ctx, database.CreateTransactionParams{
		OrderID:       order.ID,
		PaymentMethod: enum.PaymentMethodQRIS,
		PaymentStatus: database.PaymentStatusSuccess,
		ExternalID:    demoExternalID,
		PaidAt:        pgtype.Timestamptz{Time: s.now(), Valid: true},
	}); err != nil {
		return database.Order{}, fmt.Errorf("create transaction: %w", err)
	}

	if order.Status == database.OrderStatusPendingPayment {
		updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         order.ID,
			Status:     database.OrderStatusPaid,
			FromStatus: database.OrderStatusPendingPayment,
		})
		if err != nil {
			return database.Order{}, fmt.Errorf("advance to paid: %w", err)
		}
		order = updated
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.queueCache.Invalidate(ctx)
	s.notifier.OrderUpdated(order.ID, order.Status)
	return order, nil
}

// settledStatus reports whether a gateway transaction status means the
// money arrived.
func settledStatus(status string) bool {
	switch status {
	case "settlement", "capture", "success":
		return true
	}
	return false
}
