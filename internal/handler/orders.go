package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/pricing"
	"github.com/warungmie/api/internal/service"
)

// OrderServicer defines the service methods needed by the customer-facing
// order handlers. Satisfied by *service.OrderService; narrow interface for
// testability.
type OrderServicer interface {
	Place(ctx context.Context, req service.PlaceOrderRequest) (*database.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error)
}

// OrderHandler handles order placement and tracking.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// --- Request / Response types ---

type placeOrderRequest struct {
	TableNumber  string                  `json:"table_number"`
	CustomerName string                  `json:"customer_name"`
	Lines        []placeOrderLineRequest `json:"lines"`
}

type placeOrderLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int32  `json:"quantity"`
	Note     string `json:"note"`
}

type orderResponse struct {
	OrderID      uuid.UUID           `json:"order_id"`
	TableID      uuid.UUID           `json:"table_id"`
	CustomerName string              `json:"customer_name"`
	QueueNumber  string              `json:"queue_number"`
	Status       string              `json:"status"`
	Subtotal     string              `json:"subtotal"`
	TaxAmount    string              `json:"tax_amount"`
	Total        string              `json:"total"`
	PlacedAt     time.Time           `json:"placed_at"`
	EstimatedAt  time.Time           `json:"estimated_at"`
	Lines        []orderLineResponse `json:"lines,omitempty"`
}

type orderLineResponse struct {
	ID          uuid.UUID  `json:"id"`
	ItemID      uuid.UUID  `json:"item_id"`
	Quantity    int32      `json:"quantity"`
	Note        *string    `json:"note"`
	PriceAtTime string     `json:"price_at_time"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
}

type transactionResponse struct {
	ID            uuid.UUID  `json:"id"`
	PaymentMethod string     `json:"payment_method"`
	PaymentStatus string     `json:"payment_status"`
	ExternalID    string     `json:"external_id"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// orderDetailResponse is the tracking view: the order with its lines and
// payment attempts plus the countdown pair.
type orderDetailResponse struct {
	Order        orderResponse         `json:"order"`
	Transactions []transactionResponse `json:"transactions"`
	EtaMs        int64                 `json:"eta_ms"`
	LateMs       int64                 `json:"late_ms"`
}

// --- Handlers ---

// Place handles POST /orders.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TableNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_number is required"})
		return
	}
	if len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lines are required"})
		return
	}
	for i, line := range req.Lines {
		if line.ItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatLineError(i, "item_id is required"),
			})
			return
		}
		if line.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatLineError(i, "quantity must be > 0"),
			})
			return
		}
	}

	svcLines := make([]service.PlaceOrderLine, len(req.Lines))
	for i, line := range req.Lines {
		svcLines[i] = service.PlaceOrderLine{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Note:     line.Note,
		}
	}

	order, err := h.svc.Place(r.Context(), service.PlaceOrderRequest{
		TableNumber:  req.TableNumber,
		CustomerName: req.CustomerName,
		Lines:        svcLines,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: place order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbOrderToResponse(*order))
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	detail, err := h.svc.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orderResp := dbOrderToResponse(detail.Order)
	orderResp.Lines = make([]orderLineResponse, len(detail.Lines))
	for i, line := range detail.Lines {
		orderResp.Lines[i] = dbOrderLineToResponse(line)
	}

	txResps := make([]transactionResponse, len(detail.Transactions))
	for i, tx := range detail.Transactions {
		txResps[i] = dbTransactionToResponse(tx)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		Order:        orderResp,
		Transactions: txResps,
		EtaMs:        detail.EtaMs,
		LateMs:       detail.LateMs,
	})
}

// --- Helpers ---

func formatLineError(idx int, msg string) string {
	return "lines[" + strconv.Itoa(idx) + "]: " + msg
}

// isValidationError checks if the error is a known validation error
// from the service or pricing layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrTableRequired) ||
		errors.Is(err, service.ErrInvalidItemID) ||
		errors.Is(err, pricing.ErrEmptyLines) ||
		errors.Is(err, pricing.ErrInvalidQuantity) ||
		errors.Is(err, pricing.ErrItemNotFound)
}

func dbOrderToResponse(o database.Order) orderResponse {
	subtotal := numericToString(o.Subtotal)
	tax := numericToString(o.TaxAmount)
	return orderResponse{
		OrderID:      o.ID,
		TableID:      o.TableID,
		CustomerName: o.CustomerName,
		QueueNumber:  o.QueueNumber,
		Status:       string(o.Status),
		Subtotal:     subtotal,
		TaxAmount:    tax,
		Total:        sumMoney(subtotal, tax),
		PlacedAt:     o.PlacedAt,
		EstimatedAt:  o.EstimatedAt,
	}
}

func dbOrderLineToResponse(l database.OrderLine) orderLineResponse {
	resp := orderLineResponse{
		ID:          l.ID,
		ItemID:      l.ItemID,
		Quantity:    l.Quantity,
		PriceAtTime: numericToString(l.PriceAtTime),
		Status:      string(l.Status),
	}
	if l.Note.Valid {
		resp.Note = &l.Note.String
	}
	if l.StartedAt.Valid {
		resp.StartedAt = &l.StartedAt.Time
	}
	if l.FinishedAt.Valid {
		resp.FinishedAt = &l.FinishedAt.Time
	}
	return resp
}

func dbTransactionToResponse(t database.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            t.ID,
		PaymentMethod: t.PaymentMethod,
		PaymentStatus: string(t.PaymentStatus),
		ExternalID:    t.ExternalID,
		CreatedAt:     t.CreatedAt,
	}
	if t.PaidAt.Valid {
		resp.PaidAt = &t.PaidAt.Time
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func sumMoney(a, b string) string {
	da, err := decimal.NewFromString(a)
	if err != nil {
		return "0.00"
	}
	db, err := decimal.NewFromString(b)
	if err != nil {
		return "0.00"
	}
	return da.Add(db).StringFixed(2)
}
