package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusCompleted      OrderStatus = "completed"
)

type LineStatus string

const (
	LineStatusQueued  LineStatus = "queued"
	LineStatusCooking LineStatus = "cooking"
	LineStatusDone    LineStatus = "done"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
)

type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Item struct {
	ID                  uuid.UUID
	CategoryID          uuid.UUID
	Name                string
	Price               pgtype.Numeric
	BaseDurationSeconds int32
	IsQuickJob          bool
	IsAvailable         bool
	CreatedAt           time.Time
}

type Table struct {
	ID          uuid.UUID
	TableNumber string
	QRCode      string
	IsOccupied  bool
	CreatedAt   time.Time
}

type Order struct {
	ID           uuid.UUID
	TableID      uuid.UUID
	CustomerName string
	QueueNumber  string
	Subtotal     pgtype.Numeric
	TaxAmount    pgtype.Numeric
	PlacedAt     time.Time
	EstimatedAt  time.Time
	Status       OrderStatus
}

type OrderLine struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ItemID      uuid.UUID
	Quantity    int32
	Note        pgtype.Text
	PriceAtTime pgtype.Numeric
	Status      LineStatus
	StartedAt   pgtype.Timestamptz
	FinishedAt  pgtype.Timestamptz
}

type Transaction struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	PaymentMethod string
	PaymentStatus PaymentStatus
	ExternalID    string
	PaidAt        pgtype.Timestamptz
	CreatedAt     time.Time
}

type StaffUser struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
