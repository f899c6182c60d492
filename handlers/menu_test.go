package handlers

import (
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

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
)

func setupMenuTest(t *testing.T) (*MenuHandler, sqlmock.Sqlmock, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	// Cache is nil in tests; the handler reads through to the database.
	handler := &MenuHandler{
		db:          db,
		redisClient: nil,
		logger:      logger,
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/menu", handler.ListItems)
	router.GET("/api/menu/:id", handler.GetItem)

	return handler, mock, router
}

func menuColumns() []string {
	return []string{"id", "name", "description", "category", "price", "available", "prep_minutes", "popular", "created_at", "updated_at"}
}

func TestMenuHandler_ListItems(t *testing.T) {
	handler, mock, router := setupMenuTest(t)
	defer handler.db.Close()

	rows := sqlmock.NewRows(menuColumns()).
		AddRow(1, "Filter Coffee", "", "beverages", 40.0, true, 3, true, time.Now(), time.Now()).
		AddRow(2, "Masala Dosa", "with sambar", "breakfast", 80.0, true, 10, false, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, name, description, category, price, available, prep_minutes, popular, created_at, updated_at FROM menu_items").
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var items []models.MenuItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 menu items, got %d", len(items))
	}
}

func TestMenuHandler_GetItem_NotFound(t *testing.T) {
	handler, mock, router := setupMenuTest(t)
	defer handler.db.Close()

	mock.ExpectQuery("SELECT id, name, description, category, price, available, prep_minutes, popular, created_at, updated_at FROM menu_items WHERE id = \\$1").
		WithArgs("999").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/menu/999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
