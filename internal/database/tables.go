package database

import (
	"context"
)

type UpsertTableParams struct {
	TableNumber string
	QRCode      string
}

const upsertTable = `
INSERT INTO tables (table_number, qr_code, is_occupied)
VALUES ($1, $2, TRUE)
ON CONFLICT (table_number) DO UPDATE SET table_number = EXCLUDED.table_number
RETURNING id, table_number, qr_code, is_occupied, created_at
`

// UpsertTable creates the table record on first sight of a table number and
// returns the existing row otherwise. The no-op DO UPDATE keeps RETURNING
// populated on conflict.
func (q *Queries) UpsertTable(ctx context.Context, arg UpsertTableParams) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, upsertTable, arg.TableNumber, arg.QRCode).
		Scan(&t.ID, &t.TableNumber, &t.QRCode, &t.IsOccupied, &t.CreatedAt)
	return t, err
}
