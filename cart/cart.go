// Package cart holds the in-memory cart state for active sessions. Carts are
// value types updated by copy, so handlers never share mutable line slices.
package cart

import (
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
)

// Cart is an ordered collection of line items. The zero value is an empty,
// ready-to-use cart. All mutating operations return a new Cart.
type Cart struct {
	lines []models.CartLine
}

func lineTotal(price float64, qty int) float64 {
	return price * float64(qty)
}

// AddItem inserts a new line for the item or increments an existing line's
// quantity. If the resulting quantity would be zero or negative the line is
// removed instead.
func (c Cart) AddItem(item models.MenuItem, qty int, note string) Cart {
	lines := c.copyLines()
	for i, l := range lines {
		if l.ItemID == item.ID {
			newQty := l.Quantity + qty
			if newQty <= 0 {
				return Cart{lines: append(lines[:i], lines[i+1:]...)}
			}
			lines[i].Quantity = newQty
			lines[i].LineTotal = lineTotal(l.UnitPrice, newQty)
			if note != "" {
				lines[i].Note = note
			}
			return Cart{lines: lines}
		}
	}
	if qty <= 0 {
		return Cart{lines: lines}
	}
	lines = append(lines, models.CartLine{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.Price,
		Quantity:  qty,
		LineTotal: lineTotal(item.Price, qty),
		Note:      note,
	})
	return Cart{lines: lines}
}

// UpdateQuantity sets the quantity of an existing line. Quantities below 1
// are ignored; removal is an explicit RemoveItem call.
func (c Cart) UpdateQuantity(itemID, qty int) Cart {
	if qty < 1 {
		return c
	}
	lines := c.copyLines()
	for i, l := range lines {
		if l.ItemID == itemID {
			lines[i].Quantity = qty
			lines[i].LineTotal = lineTotal(l.UnitPrice, qty)
			break
		}
	}
	return Cart{lines: lines}
}

// RemoveItem deletes the line unconditionally, preserving the order of the
// remaining lines.
func (c Cart) RemoveItem(itemID int) Cart {
	lines := c.copyLines()
	for i, l := range lines {
		if l.ItemID == itemID {
			return Cart{lines: append(lines[:i], lines[i+1:]...)}
		}
	}
	return Cart{lines: lines}
}

// Total is derived on every call from the current lines.
func (c Cart) Total() float64 {
	var total float64
	for _, l := range c.lines {
		total += lineTotal(l.UnitPrice, l.Quantity)
	}
	return total
}

// Lines returns a copy of the cart's lines in insertion order.
func (c Cart) Lines() []models.CartLine {
	return c.copyLines()
}

func (c Cart) Empty() bool {
	return len(c.lines) == 0
}

func (c Cart) Size() int {
	return len(c.lines)
}

func (c Cart) copyLines() []models.CartLine {
	lines := make([]models.CartLine, len(c.lines))
	copy(lines, c.lines)
	return lines
}
