package models

import "github.com/shopspring/decimal"

// DefaultDeliveryFee is the flat fee added to every placed order.
var DefaultDeliveryFee = decimal.NewFromInt(5)

// Cart belongs to one customer session and is never persisted.
type Cart struct {
	items []OrderItem
}

// Add puts one unit of the menu item in the cart, merging by menu item id.
func (c *Cart) Add(item MenuItem) {
	for i := range c.items {
		if c.items[i].MenuItemID == item.ID {
			c.items[i].Qty++
			return
		}
	}
	c.items = append(c.items, OrderItem{MenuItemID: item.ID, Name: item.Name, Price: item.Price, Qty: 1})
}

// SetQty changes the quantity of a line; qty <= 0 removes it.
func (c *Cart) SetQty(menuItemID string, qty int) {
	for i := range c.items {
		if c.items[i].MenuItemID != menuItemID {
			continue
		}
		if qty <= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			c.items[i].Qty = qty
		}
		return
	}
}

func (c *Cart) Items() []OrderItem {
	out := make([]OrderItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) Clear() { c.items = nil }

func (c *Cart) Subtotal() decimal.Decimal {
	return ItemsSubtotal(c.items)
}

// Total is the subtotal plus the delivery fee.
func (c *Cart) Total(deliveryFee decimal.Decimal) decimal.Decimal {
	return c.Subtotal().Add(deliveryFee)
}

func ItemsSubtotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return sum
}
