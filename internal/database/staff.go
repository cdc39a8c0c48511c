package database

import (
	"context"

	"github.com/google/uuid"
)

const staffColumns = `id, username, password_hash, role, created_at`

type CreateStaffUserParams struct {
	Username     string
	PasswordHash string
	Role         string
}

const createStaffUser = `
INSERT INTO staff_users (username, password_hash, role)
VALUES ($1, $2, $3)
RETURNING ` + staffColumns

func (q *Queries) CreateStaffUser(ctx context.Context, arg CreateStaffUserParams) (StaffUser, error) {
	var u StaffUser
	err := q.db.QueryRow(ctx, createStaffUser, arg.Username, arg.PasswordHash, arg.Role).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

const getStaffUserByUsername = `
SELECT ` + staffColumns + `
FROM staff_users
WHERE username = $1
`

func (q *Queries) GetStaffUserByUsername(ctx context.Context, username string) (StaffUser, error) {
	var u StaffUser
	err := q.db.QueryRow(ctx, getStaffUserByUsername, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

const getStaffUserByID = `
SELECT ` + staffColumns + `
FROM staff_users
WHERE id = $1
`

func (q *Queries) GetStaffUserByID(ctx context.Context, id uuid.UUID) (StaffUser, error) {
	var u StaffUser
	err := q.db.QueryRow(ctx, getStaffUserByID, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}
