package models

// CartLine is a single menu item entry in a cart. LineTotal is always
// recomputed from UnitPrice and Quantity, never stored independently.
type CartLine struct {
	ItemID    int     `json:"item_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
	Note      string  `json:"note,omitempty"`
}

type AddToCartRequest struct {
	ItemID   int    `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Note     string `json:"note"`
}

type UpdateCartLineRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

type CartResponse struct {
	Lines []CartLine `json:"lines"`
	Total float64    `json:"total"`
}
