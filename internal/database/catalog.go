package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listItemsByIDs = `
SELECT id, category_id, name, price, base_duration_seconds, is_quick_job, is_available, created_at
FROM items
WHERE id = ANY($1)
`

// ListItemsByIDs returns the items matching the given ids. Unknown ids are
// simply absent from the result; callers decide whether that is an error.
func (q *Queries) ListItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]Item, error) {
	rows, err := q.db.Query(ctx, listItemsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Price, &i.BaseDurationSeconds, &i.IsQuickJob, &i.IsAvailable, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listCategories = `
SELECT id, name, created_at
FROM categories
ORDER BY name ASC
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

const listAvailableItems = `
SELECT id, category_id, name, price, base_duration_seconds, is_quick_job, is_available, created_at
FROM items
WHERE is_available = TRUE
ORDER BY name ASC
`

func (q *Queries) ListAvailableItems(ctx context.Context) ([]Item, error) {
	rows, err := q.db.Query(ctx, listAvailableItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Price, &i.BaseDurationSeconds, &i.IsQuickJob, &i.IsAvailable, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listQuickJobItems = `
SELECT id, category_id, name, price, base_duration_seconds, is_quick_job, is_available, created_at
FROM items
WHERE is_quick_job = TRUE AND is_available = TRUE
ORDER BY name ASC
LIMIT 10
`

func (q *Queries) ListQuickJobItems(ctx context.Context) ([]Item, error) {
	rows, err := q.db.Query(ctx, listQuickJobItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Price, &i.BaseDurationSeconds, &i.IsQuickJob, &i.IsAvailable, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type CreateCategoryParams struct {
	Name string
}

const createCategory = `
INSERT INTO categories (name)
VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name, created_at
`

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, createCategory, arg.Name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

type CreateItemParams struct {
	CategoryID          uuid.UUID
	Name                string
	Price               pgtype.Numeric
	BaseDurationSeconds int32
	IsQuickJob          bool
	IsAvailable         bool
}

const createItem = `
INSERT INTO items (category_id, name, price, base_duration_seconds, is_quick_job, is_available)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (category_id, name) DO UPDATE SET
    price = EXCLUDED.price,
    base_duration_seconds = EXCLUDED.base_duration_seconds,
    is_quick_job = EXCLUDED.is_quick_job,
    is_available = EXCLUDED.is_available
RETURNING id, category_id, name, price, base_duration_seconds, is_quick_job, is_available, created_at
`

func (q *Queries) CreateItem(ctx context.Context, arg CreateItemParams) (Item, error) {
	var i Item
	err := q.db.QueryRow(ctx, createItem,
		arg.CategoryID, arg.Name, arg.Price, arg.BaseDurationSeconds, arg.IsQuickJob, arg.IsAvailable,
	).Scan(&i.ID, &i.CategoryID, &i.Name, &i.Price, &i.BaseDurationSeconds, &i.IsQuickJob, &i.IsAvailable, &i.CreatedAt)
	return i, err
}
