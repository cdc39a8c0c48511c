package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/payment"
	"github.com/warungmie/api/internal/service"
)

// SettlementServicer defines the service methods needed by payment handlers.
// Satisfied by *service.SettlementService.
type SettlementServicer interface {
	EnabledMethods() []string
	CreateCharge(ctx context.Context, orderID uuid.UUID, method string) (*service.ChargeResult, error)
	Verify(ctx context.Context, externalID string, orderID uuid.UUID) (bool, error)
	SimulateSuccess(ctx context.Context, orderID uuid.UUID) (database.Order, error)
}

// PaymentHandler handles payment charging and settlement verification.
type PaymentHandler struct {
	svc SettlementServicer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc SettlementServicer) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// --- Request / Response types ---

type chargeRequest struct {
	Method string `json:"method"`
}

type chargeResponse struct {
	Amount     string           `json:"amount"`
	Method     string           `json:"method"`
	ExternalID string           `json:"external_id"`
	QRUrl      string           `json:"qr_url,omitempty"`
	Actions    []payment.Action `json:"actions,omitempty"`
}

type verifyRequest struct {
	ExternalID string `json:"external_id"`
	OrderID    string `json:"order_id"`
}

type verifyResponse struct {
	Settled bool `json:"settled"`
}

// --- Handlers ---

// Methods handles GET /payments/methods.
func (h *PaymentHandler) Methods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"methods": h.svc.EnabledMethods()})
}

// Charge handles POST /orders/{id}/charge.
func (h *PaymentHandler) Charge(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Method == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "method is required"})
		return
	}

	result, err := h.svc.CreateCharge(r.Context(), orderID, req.Method)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMethod):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment method"})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		default:
			log.Printf("ERROR: create charge: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, chargeResponse{
		Amount:     result.Amount.StringFixed(2),
		Method:     result.Method,
		ExternalID: result.ExternalID,
		QRUrl:      result.QRUrl,
		Actions:    result.Actions,
	})
}

// Verify handles POST /payments/verify.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ExternalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "external_id is required"})
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	settled, err := h.svc.Verify(r.Context(), req.ExternalID, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: verify payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{Settled: settled})
}

// Simulate handles POST /orders/{id}/simulate-payment.
func (h *PaymentHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.SimulateSuccess(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: simulate payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}
