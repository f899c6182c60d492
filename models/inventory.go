package models

import "time"

type InventoryItem struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Unit             string    `json:"unit"`
	Quantity         float64   `json:"quantity"`
	ReorderThreshold float64   `json:"reorder_threshold"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateInventoryItemRequest struct {
	Name             string  `json:"name" binding:"required"`
	Unit             string  `json:"unit" binding:"required"`
	Quantity         float64 `json:"quantity" binding:"gte=0"`
	ReorderThreshold float64 `json:"reorder_threshold" binding:"gte=0"`
}

type UpdateInventoryItemRequest struct {
	Quantity         *float64 `json:"quantity" binding:"omitempty,gte=0"`
	ReorderThreshold *float64 `json:"reorder_threshold" binding:"omitempty,gte=0"`
}

type WasteRecord struct {
	ID         int       `json:"id"`
	ItemName   string    `json:"item_name"`
	Quantity   float64   `json:"quantity"`
	Unit       string    `json:"unit"`
	Reason     string    `json:"reason"`
	RecordedBy int       `json:"recorded_by"`
	RecordedAt time.Time `json:"recorded_at"`
}

type CreateWasteRecordRequest struct {
	ItemName string  `json:"item_name" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Unit     string  `json:"unit" binding:"required"`
	Reason   string  `json:"reason" binding:"required"`
}
