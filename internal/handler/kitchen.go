package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warungmie/api/internal/cache"
	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/service"
)

// KitchenServicer defines the service methods needed by the kitchen
// handlers. Satisfied by *service.OrderService.
type KitchenServicer interface {
	ActiveQueue(ctx context.Context) (*service.QueueSnapshot, error)
	StartCooking(ctx context.Context, orderID uuid.UUID) (database.Order, error)
	FinishOrder(ctx context.Context, orderID uuid.UUID) (database.Order, error)
}

// KitchenHandler handles the kitchen display queue and line actions.
// The rendered queue JSON is cached whole; any lifecycle write drops it.
type KitchenHandler struct {
	svc        KitchenServicer
	queueCache cache.QueueCache
}

// NewKitchenHandler creates a new KitchenHandler. queueCache may be nil.
func NewKitchenHandler(svc KitchenServicer, queueCache cache.QueueCache) *KitchenHandler {
	if queueCache == nil {
		queueCache = cache.Noop{}
	}
	return &KitchenHandler{svc: svc, queueCache: queueCache}
}

// --- Response types ---

type queueEntryResponse struct {
	orderResponse
	WaitMs int64 `json:"wait_ms"`
	LateMs int64 `json:"late_ms"`
}

type queueResponse struct {
	Orders      []queueEntryResponse `json:"orders"`
	TotalActive int                  `json:"total_active"`
	TotalDelay  int                  `json:"total_delay"`
}

// --- Handlers ---

// Queue handles GET /kitchen/queue.
func (h *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if data, ok := h.queueCache.Get(r.Context()); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data) //nolint:errcheck
		return
	}

	snap, err := h.svc.ActiveQueue(r.Context())
	if err != nil {
		log.Printf("ERROR: kitchen queue: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	entries := make([]queueEntryResponse, len(snap.Orders))
	for i, entry := range snap.Orders {
		orderResp := dbOrderToResponse(entry.Order)
		orderResp.Lines = make([]orderLineResponse, len(entry.Lines))
		for j, line := range entry.Lines {
			orderResp.Lines[j] = dbOrderLineToResponse(line)
		}
		entries[i] = queueEntryResponse{
			orderResponse: orderResp,
			WaitMs:        entry.WaitMs,
			LateMs:        entry.LateMs,
		}
	}

	resp := queueResponse{
		Orders:      entries,
		TotalActive: snap.TotalActive,
		TotalDelay:  snap.TotalDelay,
	}

	if data, err := json.Marshal(resp); err == nil {
		h.queueCache.Set(r.Context(), data)
	}

	writeJSON(w, http.StatusOK, resp)
}

// StartCooking handles POST /orders/{id}/cook.
func (h *KitchenHandler) StartCooking(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.StartCooking(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: start cooking: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Finish handles POST /orders/{id}/finish.
func (h *KitchenHandler) Finish(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.FinishOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: finish order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}
