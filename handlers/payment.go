package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/kafka"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/middleware"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/payment"
)

type PaymentHandler struct {
	db         *sql.DB
	gateway    *payment.Client
	producer   sarama.SyncProducer
	eventTopic string
	logger     *zap.Logger
}

func NewPaymentHandler(db *sql.DB, gateway *payment.Client, producer sarama.SyncProducer, eventTopic string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		db:         db,
		gateway:    gateway,
		producer:   producer,
		eventTopic: eventTopic,
		logger:     logger,
	}
}

type createProviderOrderRequest struct {
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	OrderID int     `json:"order_id"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type walletPaymentRequest struct {
	OrderID int `json:"order_id" binding:"required"`
}

// CreateProviderOrder registers a pending charge with the gateway. The
// request amount is in rupees; the gateway order carries paise. When an
// application order id is supplied the provider order is bound to it so the
// verification callback can be reconciled.
func (h *PaymentHandler) CreateProviderOrder(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "CreateProviderOrder")
	defer span.End()

	var req createProviderOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.Float64("amount_rupees", req.Amount))

	receipt := fmt.Sprintf("rcpt_%s", uuid.NewString()[:13])
	providerOrder, err := h.gateway.CreateOrder(ctx, req.Amount, receipt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create provider order", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable"})
		return
	}

	if req.OrderID != 0 {
		if _, err := h.db.ExecContext(ctx,
			"UPDATE orders SET provider_order_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			providerOrder.ID, req.OrderID,
		); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to bind provider order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	span.SetAttributes(attribute.String("provider_order_id", providerOrder.ID))
	c.JSON(http.StatusOK, gin.H{"order": providerOrder})
}

// VerifyPayment checks the signature reported by the hosted checkout widget.
// A mismatch is a result, not an error: the response is 200 with valid:false
// and the bound order's payment is marked failed.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "VerifyPayment")
	defer span.End()

	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	valid := h.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature)
	middleware.RecordPaymentVerified(valid)
	span.SetAttributes(
		attribute.String("provider_order_id", req.OrderID),
		attribute.Bool("payment.valid", valid),
	)

	var order models.Order
	err := h.db.QueryRowContext(ctx,
		"SELECT id, order_number, user_id, total_amount, status, payment_status FROM orders WHERE provider_order_id = $1",
		req.OrderID,
	).Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.TotalAmount, &order.Status, &order.PaymentStatus)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		h.logger.Error("Failed to look up order for payment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	bound := err == nil

	if !valid {
		h.logger.Warn("Payment signature mismatch",
			zap.String("provider_order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
		)
		if bound {
			if _, err := h.db.ExecContext(ctx,
				"UPDATE orders SET payment_status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
				models.PaymentStatusFailed, order.ID,
			); err != nil {
				h.logger.Error("Failed to mark payment failed", zap.Error(err))
			}
			h.publishEvent(ctx, order, models.PaymentStatusFailed, "payment_failed")
		}
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	if bound {
		if _, err := h.db.ExecContext(ctx,
			"UPDATE orders SET payment_status = $1, status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3 AND status = $4",
			models.PaymentStatusCompleted, models.OrderStatusConfirmed, order.ID, models.OrderStatusPending,
		); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to mark payment completed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		h.publishEvent(ctx, order, models.PaymentStatusCompleted, "payment_completed")
	}

	h.logger.Info("Payment verified",
		zap.String("provider_order_id", req.OrderID),
		zap.String("payment_id", req.PaymentID),
	)
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// PayWithWallet settles an order from the customer's wallet balance inside a
// single transaction. Debits that would take the balance below zero are
// rejected with no partial effect.
func (h *PaymentHandler) PayWithWallet(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "PayWithWallet")
	defer span.End()

	var req walletPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	span.SetAttributes(
		attribute.Int("order.id", req.OrderID),
		attribute.Int("user_id", userID),
	)

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
		"SELECT id, order_number, user_id, total_amount, status, payment_status FROM orders WHERE id = $1 FOR UPDATE",
		req.OrderID,
	).Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.TotalAmount, &order.Status, &order.PaymentStatus)
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

	if order.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}
	if order.Status.IsTerminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "Order is no longer payable"})
		return
	}
	if order.PaymentStatus == models.PaymentStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Order already paid"})
		return
	}

	var balance float64
	err = tx.QueryRowContext(ctx, "SELECT wallet_balance FROM users WHERE id = $1 FOR UPDATE", userID).Scan(&balance)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to get wallet balance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if balance < order.TotalAmount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient wallet balance"})
		return
	}

	newBalance := balance - order.TotalAmount
	if _, err := tx.ExecContext(ctx, "UPDATE users SET wallet_balance = $1 WHERE id = $2", newBalance, userID); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to debit wallet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO wallet_transactions (user_id, order_id, amount, type, balance_after) VALUES ($1, $2, $3, $4, $5)",
		userID, order.ID, order.TotalAmount, models.TransactionDebit, newBalance,
	); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to record wallet transaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET payment_status = $1, status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3",
		models.PaymentStatusCompleted, models.OrderStatusConfirmed, order.ID,
	); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to mark order paid", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to commit wallet payment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.publishEvent(ctx, order, models.PaymentStatusCompleted, "payment_completed")

	h.logger.Info("Wallet payment completed",
		zap.Int("order_id", order.ID),
		zap.Float64("amount", order.TotalAmount),
		zap.Float64("balance_after", newBalance),
	)
	c.JSON(http.StatusOK, gin.H{
		"order_id":       order.ID,
		"transaction_id": fmt.Sprintf("WTXN-%d-%d", order.ID, time.Now().Unix()),
		"balance":        newBalance,
		"payment_status": models.PaymentStatusCompleted,
	})
}

func (h *PaymentHandler) publishEvent(ctx context.Context, order models.Order, status models.PaymentStatus, eventType string) {
	if h.producer == nil {
		return
	}
	event := models.OrderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: status,
		TotalAmount:   order.TotalAmount,
		EventType:     eventType,
	}
	if err := kafka.PublishOrderEvent(ctx, h.producer, h.eventTopic, event, h.logger); err != nil {
		h.logger.Error("Failed to publish payment event", zap.Error(err))
	}
}
