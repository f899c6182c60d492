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

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/cart"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/middleware"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
)

type CartHandler struct {
	db     *sql.DB
	carts  *cart.Store
	logger *zap.Logger
}

func NewCartHandler(db *sql.DB, carts *cart.Store, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		db:     db,
		carts:  carts,
		logger: logger,
	}
}

func cartResponse(c cart.Cart) models.CartResponse {
	return models.CartResponse{
		Lines: c.Lines(),
		Total: c.Total(),
	}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	userID := middleware.UserID(c)
	c.JSON(http.StatusOK, cartResponse(h.carts.Get(userID)))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "AddToCart")
	defer span.End()

	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.Int("item.id", req.ItemID),
		attribute.Int("quantity", req.Quantity),
	)

	var item models.MenuItem
	err := h.db.QueryRowContext(ctx,
		"SELECT id, name, price, available FROM menu_items WHERE id = $1",
		req.ItemID,
	).Scan(&item.ID, &item.Name, &item.Price, &item.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to fetch menu item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if !item.Available {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Menu item not available"})
		return
	}

	userID := middleware.UserID(c)
	updated := h.carts.Apply(userID, func(cur cart.Cart) cart.Cart {
		return cur.AddItem(item, req.Quantity, req.Note)
	})

	c.JSON(http.StatusOK, cartResponse(updated))
}

func (h *CartHandler) UpdateLine(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	var req models.UpdateCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	updated := h.carts.Apply(userID, func(cur cart.Cart) cart.Cart {
		return cur.UpdateQuantity(itemID, req.Quantity)
	})

	c.JSON(http.StatusOK, cartResponse(updated))
}

func (h *CartHandler) RemoveLine(c *gin.Context) {
	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	userID := middleware.UserID(c)
	updated := h.carts.Apply(userID, func(cur cart.Cart) cart.Cart {
		return cur.RemoveItem(itemID)
	})

	c.JSON(http.StatusOK, cartResponse(updated))
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	h.carts.Clear(middleware.UserID(c))
	c.JSON(http.StatusOK, cartResponse(cart.Cart{}))
}
