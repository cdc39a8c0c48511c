package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warungmie/api/internal/cache"
	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/handler"
	"github.com/warungmie/api/internal/service"
)

// --- Mock KitchenServicer ---

type mockKitchenService struct {
	activeQueueFn  func(ctx context.Context) (*service.QueueSnapshot, error)
	startCookingFn func(ctx context.Context, orderID uuid.UUID) (database.Order, error)
	finishOrderFn  func(ctx context.Context, orderID uuid.UUID) (database.Order, error)
}

func (m *mockKitchenService) ActiveQueue(ctx context.Context) (*service.QueueSnapshot, error) {
	return m.activeQueueFn(ctx)
}

func (m *mockKitchenService) StartCooking(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	return m.startCookingFn(ctx, orderID)
}

func (m *mockKitchenService) FinishOrder(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	return m.finishOrderFn(ctx, orderID)
}

// --- Mock queue cache ---

type mockQueueCache struct {
	data          []byte
	sets          int
	invalidations int
}

func (m *mockQueueCache) Get(ctx context.Context) ([]byte, bool) {
	if m.data == nil {
		return nil, false
	}
	return m.data, true
}

func (m *mockQueueCache) Set(ctx context.Context, data []byte) {
	m.data = data
	m.sets++
}

func (m *mockQueueCache) Invalidate(ctx context.Context) {
	m.data = nil
	m.invalidations++
}

func setupKitchenRouter(svc *mockKitchenService, qc cache.QueueCache) *chi.Mux {
	h := handler.NewKitchenHandler(svc, qc)
	r := chi.NewRouter()
	r.Get("/kitchen/queue", h.Queue)
	r.Post("/orders/{id}/cook", h.StartCooking)
	r.Post("/orders/{id}/finish", h.Finish)
	return r
}

// --- Tests ---

func TestKitchenQueue_HappyPath(t *testing.T) {
	order := testDBOrder(t)
	order.Status = database.OrderStatusPaid
	line := testDBOrderLine(t, order.ID)

	svc := &mockKitchenService{
		activeQueueFn: func(ctx context.Context) (*service.QueueSnapshot, error) {
			return &service.QueueSnapshot{
				Orders: []service.QueueEntry{
					{
						Order:  order,
						Lines:  []database.OrderLine{line},
						WaitMs: 120_000,
						LateMs: 0,
					},
				},
				TotalActive: 1,
				TotalDelay:  0,
			}, nil
		},
	}

	router := setupKitchenRouter(svc, nil)
	rr := doRequest(t, router, "GET", "/kitchen/queue", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	orders, ok := resp["orders"].([]interface{})
	if !ok {
		t.Fatal("orders not present in response")
	}
	if len(orders) != 1 {
		t.Fatalf("orders count: got %d, want 1", len(orders))
	}

	entry := orders[0].(map[string]interface{})
	if entry["queue_number"] != "123" {
		t.Errorf("queue_number: got %v, want 123", entry["queue_number"])
	}
	if entry["status"] != "paid" {
		t.Errorf("status: got %v, want paid", entry["status"])
	}
	if entry["wait_ms"] != float64(120_000) {
		t.Errorf("wait_ms: got %v, want 120000", entry["wait_ms"])
	}

	lines := entry["lines"].([]interface{})
	if len(lines) != 1 {
		t.Fatalf("lines count: got %d, want 1", len(lines))
	}

	if resp["total_active"] != float64(1) {
		t.Errorf("total_active: got %v, want 1", resp["total_active"])
	}
	if resp["total_delay"] != float64(0) {
		t.Errorf("total_delay: got %v, want 0", resp["total_delay"])
	}
}

func TestKitchenQueue_CacheHitSkipsService(t *testing.T) {
	svc := &mockKitchenService{
		activeQueueFn: func(ctx context.Context) (*service.QueueSnapshot, error) {
			t.Fatal("service should not be called on cache hit")
			return nil, nil
		},
	}
	qc := &mockQueueCache{data: []byte(`{"orders":[],"total_active":0,"total_delay":0}`)}

	router := setupKitchenRouter(svc, qc)
	rr := doRequest(t, router, "GET", "/kitchen/queue", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %s, want application/json", ct)
	}
	if rr.Body.String() != `{"orders":[],"total_active":0,"total_delay":0}` {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestKitchenQueue_CacheMissFillsCache(t *testing.T) {
	svc := &mockKitchenService{
		activeQueueFn: func(ctx context.Context) (*service.QueueSnapshot, error) {
			return &service.QueueSnapshot{Orders: []service.QueueEntry{}}, nil
		},
	}
	qc := &mockQueueCache{}

	router := setupKitchenRouter(svc, qc)
	rr := doRequest(t, router, "GET", "/kitchen/queue", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if qc.sets != 1 {
		t.Errorf("cache sets: got %d, want 1", qc.sets)
	}
}

func TestKitchenQueue_ServiceError(t *testing.T) {
	svc := &mockKitchenService{
		activeQueueFn: func(ctx context.Context) (*service.QueueSnapshot, error) {
			return nil, errors.New("connection refused")
		},
	}

	router := setupKitchenRouter(svc, nil)
	rr := doRequest(t, router, "GET", "/kitchen/queue", nil)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusInternalServerError, rr.Body.String())
	}
}

func TestStartCooking_HappyPath(t *testing.T) {
	order := testDBOrder(t)
	order.Status = database.OrderStatusProcessing

	svc := &mockKitchenService{
		startCookingFn: func(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
			if orderID != order.ID {
				t.Errorf("order id: got %v, want %v", orderID, order.ID)
			}
			return order, nil
		},
	}

	router := setupKitchenRouter(svc, nil)
	rr := doRequest(t, router, "POST", "/orders/"+order.ID.String()+"/cook", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "processing" {
		t.Errorf("status: got %v, want processing", resp["status"])
	}
}

func TestStartCooking_NotFound(t *testing.T) {
	svc := &mockKitchenService{
		startCookingFn: func(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
			return database.Order{}, service.ErrOrderNotFound
		},
	}

	router := setupKitchenRouter(svc, nil)
	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/cook", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestStartCooking_InvalidID(t *testing.T) {
	svc := &mockKitchenService{}
	router := setupKitchenRouter(svc, nil)

	rr := doRequest(t, router, "POST", "/orders/not-a-uuid/cook", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestFinish_HappyPath(t *testing.T) {
	order := testDBOrder(t)
	order.Status = database.OrderStatusCompleted

	svc := &mockKitchenService{
		finishOrderFn: func(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
			return order, nil
		},
	}

	router := setupKitchenRouter(svc, nil)
	rr := doRequest(t, router, "POST", "/orders/"+order.ID.String()+"/finish", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "completed" {
		t.Errorf("status: got %v, want completed", resp["status"])
	}
}

func TestFinish_NotFound(t *testing.T) {
	svc := &mockKitchenService{
		finishOrderFn: func(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
			return database.Order{}, service.ErrOrderNotFound
		},
	}

	router := setupKitchenRouter(svc, nil)
	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/finish", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestFinish_ServiceError(t *testing.T) {
	svc := &mockKitchenService{
		finishOrderFn: func(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
			return database.Order{}, errors.New("connection refused")
		},
	}

	router := setupKitchenRouter(svc, nil)
	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/finish", nil)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusInternalServerError, rr.Body.String())
	}
}
