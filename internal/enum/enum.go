package enum

// ── Group A: State machines (CHECK constrained in DB) ──

// Order status moves forward only: pending_payment → paid → processing →
// completed. completed is terminal.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusProcessing     = "processing"
	OrderStatusCompleted      = "completed"
)

const (
	LineStatusQueued  = "queued"
	LineStatusCooking = "cooking"
	LineStatusDone    = "done"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
)

// ── Group B: Borderline (CHECK constrained in DB) ──

const (
	StaffRoleAdmin   = "admin"
	StaffRoleCashier = "cashier"
)

// ── Group C: Configurable labels (no DB constraint) ──

const (
	PaymentMethodQRIS      = "qris"
	PaymentMethodGoPay     = "gopay"
	PaymentMethodShopeePay = "shopeepay"
)
