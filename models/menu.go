package models

import "time"

type MenuItem struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Available   bool      `json:"available"`
	PrepMinutes int       `json:"prep_minutes"`
	Popular     bool      `json:"popular"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateMenuItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category" binding:"required"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	PrepMinutes int     `json:"prep_minutes"`
	Popular     bool    `json:"popular"`
}

type UpdateMenuItemRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Available   *bool    `json:"available"`
	PrepMinutes *int     `json:"prep_minutes"`
	Popular     *bool    `json:"popular"`
}
