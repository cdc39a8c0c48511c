package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warungmie/api/internal/catalog"
)

// Errors returned by the estimator.
var (
	ErrEmptyLines      = errors.New("at least one line is required")
	ErrInvalidQuantity = errors.New("quantity must be >= 1")
	ErrItemNotFound    = errors.New("item not found")
)

// taxRate is the fixed 10% sales tax applied to every order.
var taxRate = decimal.NewFromFloat(0.10)

// LineInput is one (item, quantity, note) entry of a cart.
type LineInput struct {
	ItemID   uuid.UUID
	Quantity int32
	Note     string
}

// Snapshot freezes a line's price and duration at quote time. The snapshot
// is what gets persisted; later catalog changes never reprice an order.
type Snapshot struct {
	ItemID      uuid.UUID
	Quantity    int32
	Note        string
	PriceAtTime decimal.Decimal
	UnitSeconds int32
}

// Quote is the priced cart: exact subtotal, tax rounded half-up to the
// minor unit, and the completion estimate.
type Quote struct {
	Subtotal            decimal.Decimal
	Tax                 decimal.Decimal
	QuotedAt            time.Time
	EstimatedCompletion time.Time
	TotalBaseSeconds    int64
	Snapshots           []Snapshot
}

// Total returns subtotal + tax, the amount a gateway charge collects.
func (q *Quote) Total() decimal.Decimal {
	return q.Subtotal.Add(q.Tax)
}

// ItemGetter resolves item ids to catalog entries. Satisfied by
// *catalog.Service.
type ItemGetter interface {
	GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Item, error)
}

// Estimator computes order totals and completion estimates. Pure: a quote
// is a function of the catalog and the injected clock, nothing is written.
type Estimator struct {
	catalog ItemGetter
	now     func() time.Time
}

// NewEstimator creates an Estimator. now may be nil, in which case time.Now
// is used; tests inject a fixed clock.
func NewEstimator(cat ItemGetter, now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{catalog: cat, now: now}
}

// TaxFor computes the tax for a subtotal: 10%, rounded half-up to two
// decimal places. Used at quote time and by any later recomputation check
// so the two can never disagree.
func TaxFor(subtotal decimal.Decimal) decimal.Decimal {
	// decimal.Round rounds half away from zero, which is half-up for
	// the non-negative amounts money can take here.
	return subtotal.Mul(taxRate).Round(2)
}

// Quote prices the given lines against the current catalog.
//
// Every line must resolve: a stale item reference rejects the whole quote
// with ErrItemNotFound rather than silently shrinking the bill.
func (e *Estimator) Quote(ctx context.Context, lines []LineInput) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyLines
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrInvalidQuantity)
		}
		ids = append(ids, line.ItemID)
	}

	items, err := e.catalog.GetItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve items: %w", err)
	}

	subtotal := decimal.Zero
	var baseSeconds int64
	snapshots := make([]Snapshot, len(lines))

	for i, line := range lines {
		item, ok := items[line.ItemID]
		if !ok {
			return nil, fmt.Errorf("line[%d] (%s): %w", i, line.ItemID, ErrItemNotFound)
		}

		qty := decimal.NewFromInt32(line.Quantity)
		subtotal = subtotal.Add(item.Price.Mul(qty))
		baseSeconds += int64(item.BaseDurationSeconds) * int64(line.Quantity)

		snapshots[i] = Snapshot{
			ItemID:      line.ItemID,
			Quantity:    line.Quantity,
			Note:        line.Note,
			PriceAtTime: item.Price,
			UnitSeconds: item.BaseDurationSeconds,
		}
	}

	now := e.now()
	return &Quote{
		Subtotal:            subtotal,
		Tax:                 TaxFor(subtotal),
		QuotedAt:            now,
		EstimatedCompletion: now.Add(time.Duration(baseSeconds) * time.Second),
		TotalBaseSeconds:    baseSeconds,
		Snapshots:           snapshots,
	}, nil
}
