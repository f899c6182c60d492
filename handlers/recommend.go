package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/recommend"
)

type RecommendHandler struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

func NewRecommendHandler(db *sql.DB, logger *zap.Logger) *RecommendHandler {
	return &RecommendHandler{
		db:     db,
		now:    time.Now,
		logger: logger,
	}
}

// GetRecommendations serves the time-of-day heuristic over the live catalog.
func (h *RecommendHandler) GetRecommendations(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "GetRecommendations")
	defer span.End()

	catalog, err := h.loadCatalog(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load catalog", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	now := h.now()
	items := recommend.ForTimeOfDay(catalog, now)
	span.SetAttributes(attribute.Int("recommendations.count", len(items)))

	c.JSON(http.StatusOK, gin.H{
		"recommendations": items,
		"timestamp":       now.Format(time.RFC3339),
	})
}

// GetUserRecommendations serves the history-based heuristic: unseen items
// from the user's favorite category, padded with popular unseen items.
func (h *RecommendHandler) GetUserRecommendations(c *gin.Context) {
	ctx, span := otel.Tracer("cafeteria").Start(c.Request.Context(), "GetUserRecommendations")
	defer span.End()

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	span.SetAttributes(attribute.Int("user_id", userID))

	catalog, err := h.loadCatalog(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load catalog", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT oi.item_id, oi.quantity FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.user_id = $1`,
		userID,
	)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load order history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	var history []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ItemID, &item.Quantity); err != nil {
			h.logger.Error("Failed to scan history row", zap.Error(err))
			continue
		}
		history = append(history, item)
	}

	result := recommend.ForUser(history, catalog)
	span.SetAttributes(
		attribute.Int("recommendations.count", len(result.Items)),
		attribute.String("favorite_category", result.FavoriteCategory),
	)

	c.JSON(http.StatusOK, gin.H{
		"recommendations":   result.Items,
		"favorite_category": result.FavoriteCategory,
	})
}

func (h *RecommendHandler) loadCatalog(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := h.db.QueryContext(ctx,
		"SELECT id, name, category, price, available, popular FROM menu_items ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var catalog []models.MenuItem
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Price, &item.Available, &item.Popular); err != nil {
			return nil, err
		}
		catalog = append(catalog, item)
	}
	return catalog, nil
}
