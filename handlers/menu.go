package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/cache"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
)

const menuCacheTTL = 5 * time.Minute

type MenuHandler struct {
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewMenuHandler(db *sql.DB, redisClient *redis.Client, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{
		db:          db,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (h *MenuHandler) ListItems(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "ListMenuItems")
	defer span.End()

	query := "SELECT id, name, description, category, price, available, prep_minutes, popular, created_at, updated_at FROM menu_items ORDER BY category, name"
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch menu items", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Category, &item.Price,
			&item.Available, &item.PrepMinutes, &item.Popular, &item.CreatedAt, &item.UpdatedAt); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan menu item", zap.Error(err))
			continue
		}
		items = append(items, item)
	}

	span.SetAttributes(attribute.Int("menu.count", len(items)))
	c.JSON(http.StatusOK, items)
}

func (h *MenuHandler) GetItem(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "GetMenuItem")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("menu.id", id))

	if h.redisClient != nil {
		cachedData, err := cache.GetMenuItem(ctx, h.redisClient, id)
		if err == nil {
			var item models.MenuItem
			if err := json.Unmarshal(cachedData, &item); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				c.JSON(http.StatusOK, item)
				return
			}
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var item models.MenuItem
	err := h.db.QueryRowContext(ctx,
		"SELECT id, name, description, category, price, available, prep_minutes, popular, created_at, updated_at FROM menu_items WHERE id = $1",
		id,
	).Scan(&item.ID, &item.Name, &item.Description, &item.Category, &item.Price,
		&item.Available, &item.PrepMinutes, &item.Popular, &item.CreatedAt, &item.UpdatedAt)

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

	if h.redisClient != nil {
		if err := cache.SetMenuItem(ctx, h.redisClient, id, item, menuCacheTTL); err != nil {
			h.logger.Warn("Failed to cache menu item", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, item)
}

func (h *MenuHandler) CreateItem(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "CreateMenuItem")
	defer span.End()

	var req models.CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var item models.MenuItem
	err := h.db.QueryRowContext(ctx,
		"INSERT INTO menu_items (name, description, category, price, prep_minutes, popular) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, name, description, category, price, available, prep_minutes, popular, created_at, updated_at",
		req.Name, req.Description, req.Category, req.Price, req.PrepMinutes, req.Popular,
	).Scan(&item.ID, &item.Name, &item.Description, &item.Category, &item.Price,
		&item.Available, &item.PrepMinutes, &item.Popular, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create menu item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.Int("menu.id", item.ID))
	h.logger.Info("Menu item created", zap.Int("item_id", item.ID))
	c.JSON(http.StatusCreated, item)
}

func (h *MenuHandler) UpdateItem(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "UpdateMenuItem")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("menu.id", id))

	var req models.UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := "UPDATE menu_items SET updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argPos := 1

	if req.Name != "" {
		query += ", name = $" + strconv.Itoa(argPos)
		args = append(args, req.Name)
		argPos++
	}
	if req.Description != nil {
		query += ", description = $" + strconv.Itoa(argPos)
		args = append(args, *req.Description)
		argPos++
	}
	if req.Category != "" {
		query += ", category = $" + strconv.Itoa(argPos)
		args = append(args, req.Category)
		argPos++
	}
	if req.Price > 0 {
		query += ", price = $" + strconv.Itoa(argPos)
		args = append(args, req.Price)
		argPos++
	}
	if req.Available != nil {
		query += ", available = $" + strconv.Itoa(argPos)
		args = append(args, *req.Available)
		argPos++
	}
	if req.PrepMinutes != nil {
		query += ", prep_minutes = $" + strconv.Itoa(argPos)
		args = append(args, *req.PrepMinutes)
		argPos++
	}
	if req.Popular != nil {
		query += ", popular = $" + strconv.Itoa(argPos)
		args = append(args, *req.Popular)
		argPos++
	}

	query += " WHERE id = $" + strconv.Itoa(argPos) + " RETURNING id, name, description, category, price, available, prep_minutes, popular, created_at, updated_at"
	args = append(args, id)

	var item models.MenuItem
	err := h.db.QueryRowContext(ctx, query, args...).Scan(
		&item.ID, &item.Name, &item.Description, &item.Category, &item.Price,
		&item.Available, &item.PrepMinutes, &item.Popular, &item.CreatedAt, &item.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to update menu item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if h.redisClient != nil {
		if err := cache.DeleteMenuItem(ctx, h.redisClient, id); err != nil {
			h.logger.Warn("Failed to invalidate menu cache", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, item)
}

func (h *MenuHandler) DeleteItem(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "DeleteMenuItem")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("menu.id", id))

	result, err := h.db.ExecContext(ctx, "DELETE FROM menu_items WHERE id = $1", id)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to delete menu item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
		return
	}

	if h.redisClient != nil {
		if err := cache.DeleteMenuItem(ctx, h.redisClient, id); err != nil {
			h.logger.Warn("Failed to invalidate menu cache", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}
