package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/cart"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/kafka"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/middleware"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
)

type OrderHandler struct {
	db         *sql.DB
	carts      *cart.Store
	producer   sarama.SyncProducer
	eventTopic string
	logger     *zap.Logger
}

func NewOrderHandler(db *sql.DB, carts *cart.Store, producer sarama.SyncProducer, eventTopic string, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		db:         db,
		carts:      carts,
		producer:   producer,
		eventTopic: eventTopic,
		logger:     logger,
	}
}

// CreateOrder snapshots the caller's cart into a pending order. The total is
// computed once here and never re-derived. The cart is cleared only after the
// transaction commits, so a failed submission can be retried as-is.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	current := h.carts.Get(userID)
	if current.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	lines := current.Lines()
	total := current.Total()
	orderNumber := fmt.Sprintf("ORD-%s", uuid.NewString()[:8])

	span.SetAttributes(
		attribute.Int("user_id", userID),
		attribute.Int("cart.lines", len(lines)),
		attribute.Float64("order.total", total),
	)

	var customerName string
	if err := h.db.QueryRowContext(ctx, "SELECT name FROM users WHERE id = $1", userID).Scan(&customerName); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to look up customer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to begin transaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.QueryRowContext(ctx,
		"INSERT INTO orders (order_number, user_id, customer_name, total_amount, status, payment_method, payment_status, note) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, order_number, user_id, customer_name, total_amount, status, payment_method, payment_status, note, created_at, updated_at",
		orderNumber, userID, customerName, total,
		models.OrderStatusPending, req.PaymentMethod, models.PaymentStatusPending, req.Note,
	).Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.CustomerName, &order.TotalAmount,
		&order.Status, &order.PaymentMethod, &order.PaymentStatus, &order.Note, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	for _, line := range lines {
		var item models.OrderItem
		err = tx.QueryRowContext(ctx,
			"INSERT INTO order_items (order_id, item_id, name, unit_price, quantity, line_total, note) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, order_id, item_id, name, unit_price, quantity, line_total, note",
			order.ID, line.ItemID, line.Name, line.UnitPrice, line.Quantity,
			line.UnitPrice*float64(line.Quantity), line.Note,
		).Scan(&item.ID, &item.OrderID, &item.ItemID, &item.Name, &item.UnitPrice, &item.Quantity, &item.LineTotal, &item.Note)
		if err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to create order item", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		order.Items = append(order.Items, item)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to commit order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.carts.Clear(userID)
	middleware.RecordOrderPlaced()
	span.SetAttributes(attribute.Int("order.id", order.ID))

	h.publishEvent(ctx, models.OrderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
		EventType:     "order_created",
	})

	h.logger.Info("Order created",
		zap.Int("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.TotalAmount),
	)
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	span.SetAttributes(attribute.Int("order.id", orderID))

	order, err := h.fetchOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to get order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	role := models.Role(c.GetString(middleware.ContextRole))
	if order.UserID != middleware.UserID(c) && role != models.RoleStaff && role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "ListMyOrders")
	defer span.End()

	h.listOrders(ctx, c,
		"SELECT id, order_number, user_id, customer_name, total_amount, status, payment_method, payment_status, provider_order_id, note, created_at, updated_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC",
		middleware.UserID(c),
	)
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "ListAllOrders")
	defer span.End()

	h.listOrders(ctx, c,
		"SELECT id, order_number, user_id, customer_name, total_amount, status, payment_method, payment_status, provider_order_id, note, created_at, updated_at FROM orders ORDER BY created_at DESC",
	)
}

func (h *OrderHandler) listOrders(ctx context.Context, c *gin.Context, query string, args ...interface{}) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerName, &o.TotalAmount,
			&o.Status, &o.PaymentMethod, &o.PaymentStatus, &o.ProviderOrderID, &o.Note,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			h.logger.Error("Failed to scan order", zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}

	c.JSON(http.StatusOK, orders)
}

// UpdateStatus moves an order forward through its lifecycle. Backward moves
// and transitions out of completed/cancelled are rejected with 409.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "UpdateOrderStatus")
	defer span.End()

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	span.SetAttributes(
		attribute.Int("order.id", orderID),
		attribute.String("order.status", string(req.Status)),
	)

	var current models.OrderStatus
	err = h.db.QueryRowContext(ctx, "SELECT status FROM orders WHERE id = $1", orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to get order status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !current.CanTransitionTo(req.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("Cannot transition order from %s to %s", current, req.Status),
		})
		return
	}

	// The observed status is part of the predicate so a concurrent update
	// between the read and the write cannot smuggle in a stale transition.
	var order models.Order
	err = h.db.QueryRowContext(ctx,
		"UPDATE orders SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND status = $3 RETURNING id, order_number, user_id, customer_name, total_amount, status, payment_method, payment_status, provider_order_id, note, created_at, updated_at",
		req.Status, orderID, current,
	).Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.CustomerName, &order.TotalAmount,
		&order.Status, &order.PaymentMethod, &order.PaymentStatus, &order.ProviderOrderID, &order.Note,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusConflict, gin.H{"error": "Order status changed concurrently"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to update order status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.publishEvent(ctx, models.OrderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
		EventType:     "order_status_changed",
	})

	h.logger.Info("Order status updated",
		zap.Int("order_id", order.ID),
		zap.String("status", string(order.Status)),
	)
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) fetchOrder(ctx context.Context, orderID int) (*models.Order, error) {
	var order models.Order
	err := h.db.QueryRowContext(ctx,
		"SELECT id, order_number, user_id, customer_name, total_amount, status, payment_method, payment_status, provider_order_id, note, created_at, updated_at FROM orders WHERE id = $1",
		orderID,
	).Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.CustomerName, &order.TotalAmount,
		&order.Status, &order.PaymentMethod, &order.PaymentStatus, &order.ProviderOrderID, &order.Note,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx,
		"SELECT id, order_id, item_id, name, unit_price, quantity, line_total, note FROM order_items WHERE order_id = $1 ORDER BY id",
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ItemID, &item.Name,
			&item.UnitPrice, &item.Quantity, &item.LineTotal, &item.Note); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	return &order, nil
}

func (h *OrderHandler) publishEvent(ctx context.Context, event models.OrderEvent) {
	if h.producer == nil {
		return
	}
	if err := kafka.PublishOrderEvent(ctx, h.producer, h.eventTopic, event, h.logger); err != nil {
		// Event delivery is best-effort; the order row is the source of truth.
		h.logger.Error("Failed to publish order event", zap.Error(err))
	}
}
