package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/middleware"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
)

type AdminHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewAdminHandler(db *sql.DB, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		db:     db,
		logger: logger,
	}
}

// CreateStaff provisions a staff or admin account. The admin-role check is
// repeated here so the handler denies non-admin callers even if the route
// guard is misconfigured; no row is written on rejection.
func (h *AdminHandler) CreateStaff(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "CreateStaff")
	defer span.End()

	if models.Role(c.GetString(middleware.ContextRole)) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var req models.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Role != models.RoleStaff && req.Role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	var existingID int
	err := h.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = $1", req.Email).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		h.logger.Error("Database error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var user models.User
	err = h.db.QueryRowContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id, name, email, role, wallet_balance, created_at",
		req.Name, req.Email, string(hashedPassword), req.Role,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.WalletBalance, &user.CreatedAt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create staff user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	h.logger.Info("Staff user created",
		zap.Int("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
	c.JSON(http.StatusCreated, user)
}

func (h *AdminHandler) ListInventory(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "ListInventory")
	defer span.End()

	rows, err := h.db.QueryContext(ctx,
		"SELECT id, name, unit, quantity, reorder_threshold, created_at, updated_at FROM inventory_items ORDER BY name")
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list inventory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		var item models.InventoryItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Unit, &item.Quantity,
			&item.ReorderThreshold, &item.CreatedAt, &item.UpdatedAt); err != nil {
			h.logger.Error("Failed to scan inventory item", zap.Error(err))
			continue
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, items)
}

func (h *AdminHandler) CreateInventoryItem(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "CreateInventoryItem")
	defer span.End()

	var req models.CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var item models.InventoryItem
	err := h.db.QueryRowContext(ctx,
		"INSERT INTO inventory_items (name, unit, quantity, reorder_threshold) VALUES ($1, $2, $3, $4) RETURNING id, name, unit, quantity, reorder_threshold, created_at, updated_at",
		req.Name, req.Unit, req.Quantity, req.ReorderThreshold,
	).Scan(&item.ID, &item.Name, &item.Unit, &item.Quantity, &item.ReorderThreshold, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create inventory item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *AdminHandler) UpdateInventoryItem(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "UpdateInventoryItem")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("inventory.id", id))

	var req models.UpdateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := "UPDATE inventory_items SET updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argPos := 1

	if req.Quantity != nil {
		query += ", quantity = $" + strconv.Itoa(argPos)
		args = append(args, *req.Quantity)
		argPos++
	}
	if req.ReorderThreshold != nil {
		query += ", reorder_threshold = $" + strconv.Itoa(argPos)
		args = append(args, *req.ReorderThreshold)
		argPos++
	}

	query += " WHERE id = $" + strconv.Itoa(argPos) + " RETURNING id, name, unit, quantity, reorder_threshold, created_at, updated_at"
	args = append(args, id)

	var item models.InventoryItem
	err := h.db.QueryRowContext(ctx, query, args...).Scan(
		&item.ID, &item.Name, &item.Unit, &item.Quantity, &item.ReorderThreshold, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to update inventory item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *AdminHandler) DeleteInventoryItem(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "DeleteInventoryItem")
	defer span.End()

	id := c.Param("id")
	result, err := h.db.ExecContext(ctx, "DELETE FROM inventory_items WHERE id = $1", id)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to delete inventory item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Inventory item deleted"})
}

func (h *AdminHandler) RecordWaste(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "RecordWaste")
	defer span.End()

	var req models.CreateWasteRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var record models.WasteRecord
	err := h.db.QueryRowContext(ctx,
		"INSERT INTO waste_records (item_name, quantity, unit, reason, recorded_by) VALUES ($1, $2, $3, $4, $5) RETURNING id, item_name, quantity, unit, reason, recorded_by, recorded_at",
		req.ItemName, req.Quantity, req.Unit, req.Reason, middleware.UserID(c),
	).Scan(&record.ID, &record.ItemName, &record.Quantity, &record.Unit, &record.Reason, &record.RecordedBy, &record.RecordedAt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to record waste", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	middleware.RecordWaste()
	h.logger.Info("Waste recorded",
		zap.String("item", record.ItemName),
		zap.Float64("quantity", record.Quantity),
	)
	c.JSON(http.StatusCreated, record)
}

func (h *AdminHandler) ListWaste(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "ListWaste")
	defer span.End()

	rows, err := h.db.QueryContext(ctx,
		"SELECT id, item_name, quantity, unit, reason, recorded_by, recorded_at FROM waste_records ORDER BY recorded_at DESC")
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list waste records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	records := []models.WasteRecord{}
	for rows.Next() {
		var r models.WasteRecord
		if err := rows.Scan(&r.ID, &r.ItemName, &r.Quantity, &r.Unit, &r.Reason, &r.RecordedBy, &r.RecordedAt); err != nil {
			h.logger.Error("Failed to scan waste record", zap.Error(err))
			continue
		}
		records = append(records, r)
	}

	c.JSON(http.StatusOK, records)
}

type salesByDay struct {
	Day     string  `json:"day"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type topItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// SalesAnalytics returns read-only aggregates over completed payments: no
// state is mutated and query errors are surfaced directly.
func (h *AdminHandler) SalesAnalytics(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "SalesAnalytics")
	defer span.End()

	var totalOrders int
	var totalRevenue float64
	err := h.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM orders WHERE payment_status = $1",
		models.PaymentStatusCompleted,
	).Scan(&totalOrders, &totalRevenue)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to aggregate sales", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	byDay := []salesByDay{}
	rows, err := h.db.QueryContext(ctx,
		`SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM orders
		 WHERE payment_status = $1 AND created_at >= CURRENT_DATE - INTERVAL '7 days'
		 GROUP BY created_at::date ORDER BY created_at::date`,
		models.PaymentStatusCompleted,
	)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to aggregate daily sales", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()
	for rows.Next() {
		var d salesByDay
		if err := rows.Scan(&d.Day, &d.Orders, &d.Revenue); err != nil {
			h.logger.Error("Failed to scan daily sales", zap.Error(err))
			continue
		}
		byDay = append(byDay, d)
	}

	topItems := []topItem{}
	itemRows, err := h.db.QueryContext(ctx,
		`SELECT oi.name, SUM(oi.quantity), COALESCE(SUM(oi.line_total), 0)
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.payment_status = $1
		 GROUP BY oi.name ORDER BY SUM(oi.quantity) DESC LIMIT 5`,
		models.PaymentStatusCompleted,
	)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to aggregate top items", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var t topItem
		if err := itemRows.Scan(&t.Name, &t.Quantity, &t.Revenue); err != nil {
			h.logger.Error("Failed to scan top item", zap.Error(err))
			continue
		}
		topItems = append(topItems, t)
	}

	c.JSON(http.StatusOK, gin.H{
		"total_orders":  totalOrders,
		"total_revenue": totalRevenue,
		"sales_by_day":  byDay,
		"top_items":     topItems,
	})
}
