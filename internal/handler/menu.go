package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/warungmie/api/internal/catalog"
)

// MenuServicer defines the catalog methods needed by the menu handlers.
// Satisfied by *catalog.Service.
type MenuServicer interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	ListQuickJobs(ctx context.Context) ([]catalog.Item, error)
}

// MenuHandler serves the customer-facing menu. Public, read-only.
type MenuHandler struct {
	svc MenuServicer
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc MenuServicer) *MenuHandler {
	return &MenuHandler{svc: svc}
}

// --- Response types ---

type categoryResponse struct {
	ID    uuid.UUID      `json:"id"`
	Name  string         `json:"name"`
	Items []itemResponse `json:"items"`
}

type itemResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Price               string    `json:"price"`
	BaseDurationSeconds int32     `json:"base_duration_seconds"`
	IsQuickJob          bool      `json:"is_quick_job"`
}

// --- Handlers ---

// Categories handles GET /menu/categories.
func (h *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		items := make([]itemResponse, len(c.Items))
		for j, item := range c.Items {
			items[j] = toItemResponse(item)
		}
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name, Items: items}
	}

	writeJSON(w, http.StatusOK, map[string][]categoryResponse{"categories": resp})
}

// QuickJobs handles GET /menu/quick-jobs.
func (h *MenuHandler) QuickJobs(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListQuickJobs(r.Context())
	if err != nil {
		log.Printf("ERROR: list quick jobs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]itemResponse, len(items))
	for i, item := range items {
		resp[i] = toItemResponse(item)
	}

	writeJSON(w, http.StatusOK, map[string][]itemResponse{"items": resp})
}

func toItemResponse(item catalog.Item) itemResponse {
	return itemResponse{
		ID:                  item.ID,
		Name:                item.Name,
		Price:               item.Price.StringFixed(2),
		BaseDurationSeconds: item.BaseDurationSeconds,
		IsQuickJob:          item.IsQuickJob,
	}
}
