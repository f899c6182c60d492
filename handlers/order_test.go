package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/cart"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/middleware"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
)

const orderColumns = "id, order_number, user_id, customer_name, total_amount, status, payment_method, payment_status, provider_order_id, note, created_at, updated_at"

func setupOrderTest(t *testing.T, role string) (*OrderHandler, sqlmock.Sqlmock, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	handler := &OrderHandler{
		db:         db,
		carts:      cart.NewStore(),
		producer:   nil, // events are best-effort and skipped when unset
		eventTopic: "cafeteria_order_events",
		logger:     logger,
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, 1)
		c.Set(middleware.ContextRole, role)
	})
	router.POST("/api/orders", handler.CreateOrder)
	router.GET("/api/orders/:id", handler.GetOrder)
	router.PATCH("/api/orders/:id/status", handler.UpdateStatus)

	return handler, mock, router
}

func orderRow(id int, userID int, status models.OrderStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "order_number", "user_id", "customer_name", "total_amount", "status",
		"payment_method", "payment_status", "provider_order_id", "note", "created_at", "updated_at",
	}).AddRow(id, "ORD-abcd1234", userID, "Asha", 160.0, status, "upi", "pending", "", "", time.Now(), time.Now())
}

func TestOrderHandler_CreateOrder_EmptyCart(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "customer")
	defer handler.db.Close()

	body, _ := json.Marshal(models.CreateOrderRequest{PaymentMethod: models.PaymentMethodUPI})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expected no database activity, got: %v", err)
	}
}

func TestOrderHandler_CreateOrder_Success(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "customer")
	defer handler.db.Close()

	// Seed the caller's cart: 2 coffees + 1 dosa = 160.
	handler.carts.Apply(1, func(c cart.Cart) cart.Cart {
		c = c.AddItem(models.MenuItem{ID: 10, Name: "Coffee", Price: 40}, 2, "")
		return c.AddItem(models.MenuItem{ID: 11, Name: "Dosa", Price: 80}, 1, "")
	})

	mock.ExpectQuery("SELECT name FROM users WHERE id = \\$1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Asha"))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_number", "user_id", "customer_name", "total_amount", "status",
			"payment_method", "payment_status", "note", "created_at", "updated_at",
		}).AddRow(5, "ORD-abcd1234", 1, "Asha", 160.0, "pending", "upi", "pending", "", time.Now(), time.Now()))

	itemCols := []string{"id", "order_id", "item_id", "name", "unit_price", "quantity", "line_total", "note"}
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(1, 5, 10, "Coffee", 40.0, 2, 80.0, ""))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(2, 5, 11, "Dosa", 80.0, 1, 80.0, ""))
	mock.ExpectCommit()

	body, _ := json.Marshal(models.CreateOrderRequest{PaymentMethod: models.PaymentMethodUPI})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var order models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if order.TotalAmount != 160.0 {
		t.Errorf("Expected total 160, got %.2f", order.TotalAmount)
	}
	if len(order.Items) != 2 {
		t.Errorf("Expected 2 order items, got %d", len(order.Items))
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("Expected pending status, got %s", order.Status)
	}

	// Cart must be cleared only after a successful submission.
	if !handler.carts.Get(1).Empty() {
		t.Errorf("Expected cart to be cleared after checkout")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestOrderHandler_CreateOrder_DBFailureLeavesCart(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "customer")
	defer handler.db.Close()

	handler.carts.Apply(1, func(c cart.Cart) cart.Cart {
		return c.AddItem(models.MenuItem{ID: 10, Name: "Coffee", Price: 40}, 2, "")
	})

	mock.ExpectQuery("SELECT name FROM users WHERE id = \\$1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Asha"))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	body, _ := json.Marshal(models.CreateOrderRequest{PaymentMethod: models.PaymentMethodCard})
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if handler.carts.Get(1).Empty() {
		t.Errorf("Expected cart to survive a failed submission")
	}
}

func TestOrderHandler_GetOrder_Success(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "customer")
	defer handler.db.Close()

	mock.ExpectQuery("SELECT " + orderColumns + " FROM orders WHERE id = \\$1").
		WithArgs(5).
		WillReturnRows(orderRow(5, 1, models.OrderStatusPending))
	mock.ExpectQuery("SELECT id, order_id, item_id, name, unit_price, quantity, line_total, note FROM order_items").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "item_id", "name", "unit_price", "quantity", "line_total", "note"}).
			AddRow(1, 5, 10, "Coffee", 40.0, 2, 80.0, ""))

	req := httptest.NewRequest(http.MethodGet, "/api/orders/5", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestOrderHandler_GetOrder_NotFound(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "customer")
	defer handler.db.Close()

	mock.ExpectQuery("SELECT " + orderColumns + " FROM orders WHERE id = \\$1").
		WithArgs(999).
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/999", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestOrderHandler_GetOrder_OtherCustomerDenied(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "customer")
	defer handler.db.Close()

	mock.ExpectQuery("SELECT " + orderColumns + " FROM orders WHERE id = \\$1").
		WithArgs(5).
		WillReturnRows(orderRow(5, 42, models.OrderStatusPending))
	mock.ExpectQuery("SELECT id, order_id, item_id, name, unit_price, quantity, line_total, note FROM order_items").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "item_id", "name", "unit_price", "quantity", "line_total", "note"}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders/5", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestOrderHandler_UpdateStatus_Forward(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "staff")
	defer handler.db.Close()

	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("confirmed"))
	mock.ExpectQuery("UPDATE orders SET status = \\$1, updated_at = CURRENT_TIMESTAMP WHERE id = \\$2 AND status = \\$3").
		WithArgs("preparing", 5, "confirmed").
		WillReturnRows(orderRow(5, 1, models.OrderStatusPreparing))

	body, _ := json.Marshal(models.UpdateOrderStatusRequest{Status: models.OrderStatusPreparing})
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/5/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestOrderHandler_UpdateStatus_BackwardRejected(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "staff")
	defer handler.db.Close()

	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("ready"))

	body, _ := json.Marshal(models.UpdateOrderStatusRequest{Status: models.OrderStatusConfirmed})
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/5/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status %d, got %d", http.StatusConflict, w.Code)
	}
}

// A concurrent writer can change the status between the read and the update.
// The update's status predicate then matches no row and the request loses
// with a conflict instead of overwriting the newer state.
func TestOrderHandler_UpdateStatus_LostRaceRejected(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "staff")
	defer handler.db.Close()

	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectQuery("UPDATE orders SET status = \\$1, updated_at = CURRENT_TIMESTAMP WHERE id = \\$2 AND status = \\$3").
		WithArgs("confirmed", 5, "pending").
		WillReturnError(sql.ErrNoRows)

	body, _ := json.Marshal(models.UpdateOrderStatusRequest{Status: models.OrderStatusConfirmed})
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/5/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestOrderHandler_UpdateStatus_TerminalRejected(t *testing.T) {
	handler, mock, router := setupOrderTest(t, "staff")
	defer handler.db.Close()

	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	body, _ := json.Marshal(models.UpdateOrderStatusRequest{Status: models.OrderStatusCancelled})
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/5/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status %d, got %d", http.StatusConflict, w.Code)
	}
}
