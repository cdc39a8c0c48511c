package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/handler"
	"github.com/warungmie/api/internal/pricing"
	"github.com/warungmie/api/internal/service"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	placeFn func(ctx context.Context, req service.PlaceOrderRequest) (*database.Order, error)
	getFn   func(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error)
}

func (m *mockOrderService) Place(ctx context.Context, req service.PlaceOrderRequest) (*database.Order, error) {
	return m.placeFn(ctx, req)
}

func (m *mockOrderService) Get(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error) {
	return m.getFn(ctx, orderID)
}

// --- Test helpers ---

func setupOrderRouter(svc *mockOrderService) *chi.Mux {
	h := handler.NewOrderHandler(svc)
	r := chi.NewRouter()
	r.Post("/orders", h.Place)
	r.Get("/orders/{id}", h.Get)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testNumeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

// --- Helpers to build test data ---

var handlerTestNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testDBOrder(t *testing.T) database.Order {
	return database.Order{
		ID:           uuid.New(),
		TableID:      uuid.New(),
		CustomerName: "Budi",
		QueueNumber:  "123",
		Subtotal:     testNumeric(t, "45000"),
		TaxAmount:    testNumeric(t, "4500"),
		PlacedAt:     handlerTestNow,
		EstimatedAt:  handlerTestNow.Add(15 * time.Minute),
		Status:       database.OrderStatusPendingPayment,
	}
}

func testDBOrderLine(t *testing.T, orderID uuid.UUID) database.OrderLine {
	return database.OrderLine{
		ID:          uuid.New(),
		OrderID:     orderID,
		ItemID:      uuid.New(),
		Quantity:    2,
		PriceAtTime: testNumeric(t, "20000"),
		Status:      database.LineStatusQueued,
	}
}

// --- Tests ---

func TestOrderPlace_HappyPath(t *testing.T) {
	itemID := uuid.New()
	order := testDBOrder(t)

	svc := &mockOrderService{
		placeFn: func(ctx context.Context, req service.PlaceOrderRequest) (*database.Order, error) {
			if req.TableNumber != "12" {
				t.Errorf("table_number: got %v, want 12", req.TableNumber)
			}
			if req.CustomerName != "Budi" {
				t.Errorf("customer_name: got %v, want Budi", req.CustomerName)
			}
			if len(req.Lines) != 1 {
				t.Fatalf("lines count: got %d, want 1", len(req.Lines))
			}
			if req.Lines[0].ItemID != itemID.String() {
				t.Errorf("item_id: got %v, want %v", req.Lines[0].ItemID, itemID)
			}
			if req.Lines[0].Quantity != 2 {
				t.Errorf("quantity: got %d, want 2", req.Lines[0].Quantity)
			}
			if req.Lines[0].Note != "pedas" {
				t.Errorf("note: got %v, want pedas", req.Lines[0].Note)
			}
			return &order, nil
		},
	}

	router := setupOrderRouter(svc)
	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"table_number":  "12",
		"customer_name": "Budi",
		"lines": []map[string]interface{}{
			{"item_id": itemID.String(), "quantity": 2, "note": "pedas"},
		},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["order_id"] != order.ID.String() {
		t.Errorf("order_id: got %v, want %v", resp["order_id"], order.ID)
	}
	if resp["queue_number"] != "123" {
		t.Errorf("queue_number: got %v, want 123", resp["queue_number"])
	}
	if resp["status"] != "pending_payment" {
		t.Errorf("status: got %v, want pending_payment", resp["status"])
	}
	if resp["subtotal"] != "45000.00" {
		t.Errorf("subtotal: got %v, want 45000.00", resp["subtotal"])
	}
	if resp["tax_amount"] != "4500.00" {
		t.Errorf("tax_amount: got %v, want 4500.00", resp["tax_amount"])
	}
	if resp["total"] != "49500.00" {
		t.Errorf("total: got %v, want 49500.00", resp["total"])
	}
}

func TestOrderPlace_MissingTableNumber(t *testing.T) {
	svc := &mockOrderService{}
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"lines": []map[string]interface{}{
			{"item_id": uuid.New().String(), "quantity": 1},
		},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "table_number is required" {
		t.Errorf("error: got %v, want 'table_number is required'", resp["error"])
	}
}

func TestOrderPlace_EmptyLines(t *testing.T) {
	svc := &mockOrderService{}
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"table_number": "12",
		"lines":        []map[string]interface{}{},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "lines are required" {
		t.Errorf("error: got %v, want 'lines are required'", resp["error"])
	}
}

func TestOrderPlace_MissingItemID(t *testing.T) {
	svc := &mockOrderService{}
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"table_number": "12",
		"lines": []map[string]interface{}{
			{"quantity": 1},
		},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "lines[0]: item_id is required" {
		t.Errorf("error: got %v, want 'lines[0]: item_id is required'", resp["error"])
	}
}

func TestOrderPlace_ZeroQuantity(t *testing.T) {
	svc := &mockOrderService{}
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"table_number": "12",
		"lines": []map[string]interface{}{
			{"item_id": uuid.New().String(), "quantity": 0},
		},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "lines[0]: quantity must be > 0" {
		t.Errorf("error: got %v, want 'lines[0]: quantity must be > 0'", resp["error"])
	}
}

func TestOrderPlace_InvalidBody(t *testing.T) {
	svc := &mockOrderService{}
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "POST", "/orders", "not json")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestOrderPlace_ServiceValidationError(t *testing.T) {
	for _, svcErr := range []error{
		service.ErrInvalidItemID,
		pricing.ErrItemNotFound,
		pricing.ErrInvalidQuantity,
	} {
		svc := &mockOrderService{
			placeFn: func(ctx context.Context, req service.PlaceOrderRequest) (*database.Order, error) {
				return nil, svcErr
			},
		}

		router := setupOrderRouter(svc)
		rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
			"table_number": "12",
			"lines": []map[string]interface{}{
				{"item_id": uuid.New().String(), "quantity": 1},
			},
		})

		if rr.Code != http.StatusBadRequest {
			t.Errorf("%v: status: got %d, want %d", svcErr, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestOrderPlace_ServiceInternalError(t *testing.T) {
	svc := &mockOrderService{
		placeFn: func(ctx context.Context, req service.PlaceOrderRequest) (*database.Order, error) {
			return nil, context.DeadlineExceeded
		},
	}

	router := setupOrderRouter(svc)
	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"table_number": "12",
		"lines": []map[string]interface{}{
			{"item_id": uuid.New().String(), "quantity": 1},
		},
	})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusInternalServerError, rr.Body.String())
	}
}

func TestOrderGet_HappyPath(t *testing.T) {
	order := testDBOrder(t)
	order.Status = database.OrderStatusProcessing
	line := testDBOrderLine(t, order.ID)
	line.Note = pgtype.Text{String: "pedas", Valid: true}

	tx := database.Transaction{
		ID:            uuid.New(),
		OrderID:       order.ID,
		PaymentMethod: "qris",
		PaymentStatus: database.PaymentStatusSuccess,
		ExternalID:    "order-x-1",
		PaidAt:        pgtype.Timestamptz{Time: handlerTestNow, Valid: true},
		CreatedAt:     handlerTestNow,
	}

	svc := &mockOrderService{
		getFn: func(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error) {
			if orderID != order.ID {
				t.Errorf("order id: got %v, want %v", orderID, order.ID)
			}
			return &service.OrderDetail{
				Order:        order,
				Lines:        []database.OrderLine{line},
				Transactions: []database.Transaction{tx},
				EtaMs:        900_000,
			}, nil
		},
	}

	router := setupOrderRouter(svc)
	rr := doRequest(t, router, "GET", "/orders/"+order.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	orderResp, ok := resp["order"].(map[string]interface{})
	if !ok {
		t.Fatal("order not present in response")
	}
	if orderResp["status"] != "processing" {
		t.Errorf("status: got %v, want processing", orderResp["status"])
	}

	lines := orderResp["lines"].([]interface{})
	if len(lines) != 1 {
		t.Fatalf("lines count: got %d, want 1", len(lines))
	}
	lineResp := lines[0].(map[string]interface{})
	if lineResp["note"] != "pedas" {
		t.Errorf("note: got %v, want pedas", lineResp["note"])
	}
	if lineResp["price_at_time"] != "20000.00" {
		t.Errorf("price_at_time: got %v, want 20000.00", lineResp["price_at_time"])
	}

	txs := resp["transactions"].([]interface{})
	if len(txs) != 1 {
		t.Fatalf("transactions count: got %d, want 1", len(txs))
	}
	txResp := txs[0].(map[string]interface{})
	if txResp["payment_status"] != "success" {
		t.Errorf("payment_status: got %v, want success", txResp["payment_status"])
	}
	if txResp["paid_at"] == nil {
		t.Error("paid_at should be set")
	}

	if resp["eta_ms"] != float64(900_000) {
		t.Errorf("eta_ms: got %v, want 900000", resp["eta_ms"])
	}
	if resp["late_ms"] != float64(0) {
		t.Errorf("late_ms: got %v, want 0", resp["late_ms"])
	}
}

func TestOrderGet_NotFound(t *testing.T) {
	svc := &mockOrderService{
		getFn: func(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error) {
			return nil, service.ErrOrderNotFound
		},
	}

	router := setupOrderRouter(svc)
	rr := doRequest(t, router, "GET", "/orders/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "order not found" {
		t.Errorf("error: got %v, want 'order not found'", resp["error"])
	}
}

func TestOrderGet_InvalidID(t *testing.T) {
	svc := &mockOrderService{}
	router := setupOrderRouter(svc)

	rr := doRequest(t, router, "GET", "/orders/not-a-uuid", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestOrderGet_ServiceError(t *testing.T) {
	svc := &mockOrderService{
		getFn: func(ctx context.Context, orderID uuid.UUID) (*service.OrderDetail, error) {
			return nil, errors.New("connection refused")
		},
	}

	router := setupOrderRouter(svc)
	rr := doRequest(t, router, "GET", "/orders/"+uuid.New().String(), nil)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusInternalServerError, rr.Body.String())
	}
}
