package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warungmie/api/internal/database"
)

// Item is a sellable menu entry. Price and BaseDurationSeconds feed the
// pricing and ETA math; orders keep their own snapshots, so later catalog
// edits never touch a placed order.
type Item struct {
	ID                  uuid.UUID
	CategoryID          uuid.UUID
	Name                string
	Price               decimal.Decimal
	BaseDurationSeconds int32
	IsQuickJob          bool
	IsAvailable         bool
}

// Category groups items for the menu screen.
type Category struct {
	ID    uuid.UUID
	Name  string
	Items []Item
}

// Store defines the database methods needed by the catalog.
// Satisfied by *database.Queries; narrow interface for testability.
type Store interface {
	ListItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Item, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
	ListAvailableItems(ctx context.Context) ([]database.Item, error)
	ListQuickJobItems(ctx context.Context) ([]database.Item, error)
}

// Service provides read-only catalog lookups. No side effects.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetItems resolves the given ids to items. Unknown ids are silently dropped
// from the result map; callers decide whether a missing id is fatal.
func (s *Service) GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Item, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Item{}, nil
	}

	rows, err := s.store.ListItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make(map[uuid.UUID]Item, len(rows))
	for _, row := range rows {
		items[row.ID] = toItem(row)
	}
	return items, nil
}

// ListCategories returns all categories with their available items, both
// sorted by name ascending.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	rows, err := s.store.ListAvailableItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	byCategory := make(map[uuid.UUID][]Item, len(cats))
	for _, row := range rows {
		byCategory[row.CategoryID] = append(byCategory[row.CategoryID], toItem(row))
	}

	out := make([]Category, len(cats))
	for i, c := range cats {
		out[i] = Category{ID: c.ID, Name: c.Name, Items: byCategory[c.ID]}
	}
	return out, nil
}

// ListQuickJobs returns the available quick-job items, used by the menu's
// queue-jump affordance. Display only; placement gives them no priority.
func (s *Service) ListQuickJobs(ctx context.Context) ([]Item, error) {
	rows, err := s.store.ListQuickJobItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quick jobs: %w", err)
	}
	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = toItem(row)
	}
	return items, nil
}

func toItem(row database.Item) Item {
	return Item{
		ID:                  row.ID,
		CategoryID:          row.CategoryID,
		Name:                row.Name,
		Price:               numericToDecimal(row.Price),
		BaseDurationSeconds: row.BaseDurationSeconds,
		IsQuickJob:          row.IsQuickJob,
		IsAvailable:         row.IsAvailable,
	}
}

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
