package models

import (
	"encoding/json"
	"sort"
)

type MenuItem struct {
	ID              string `json:"id"`
	Name            string `json:"name" validate:"required"`
	Description     string `json:"description,omitempty"`
	Price           Amount `json:"price"`
	Category        string `json:"category,omitempty"`
	Restaurant      string `json:"restaurant,omitempty"`
	PreparationTime int    `json:"preparationTime,omitempty" validate:"gte=0"`
}

func (m *MenuItem) UnmarshalJSON(b []byte) error {
	type alias MenuItem
	aux := struct {
		*alias
		UnderscoreID string `json:"_id"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.ID = CanonicalID(m.ID, aux.UnderscoreID)
	return nil
}

// Categories returns "all" followed by the distinct categories in menu order.
func Categories(menu []MenuItem) []string {
	out := []string{"all"}
	seen := map[string]bool{}
	for _, m := range menu {
		if m.Category == "" || seen[m.Category] {
			continue
		}
		seen[m.Category] = true
		out = append(out, m.Category)
	}
	return out
}

// FilterByCategory keeps items in category; "all" keeps everything.
func FilterByCategory(menu []MenuItem, category string) []MenuItem {
	if category == "" || category == "all" {
		return menu
	}
	var out []MenuItem
	for _, m := range menu {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

type AdminStats struct {
	TotalOrders  int    `json:"totalOrders"`
	ActiveOrders int    `json:"activeOrders"`
	TotalRevenue Amount `json:"totalRevenue"`
	ActiveRiders int    `json:"activeRiders"`
}

// SortOrders orders newest first, falling back to id for a stable result.
func SortOrders(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
}
