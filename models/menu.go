package models

import "github.com/shopspring/decimal"

// DefaultCategory groups items that arrive without a category.
const DefaultCategory = "Menu"

type MenuItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
}

type MenuCategory struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// Menu is the GET /menu payload. The backend sends either a flat item list
// (under "items" or the legacy "menu" key) or named categories.
type Menu struct {
	TableID    string         `json:"table_id"`
	Items      []MenuItem     `json:"items,omitempty"`
	Legacy     []MenuItem     `json:"menu,omitempty"`
	Categories []MenuCategory `json:"categories,omitempty"`
}

// Grouped returns the menu as categories, keeping the backend order.
func (m *Menu) Grouped() []MenuCategory {
	if len(m.Categories) > 0 {
		out := make([]MenuCategory, 0, len(m.Categories))
		for _, c := range m.Categories {
			name := c.Name
			if name == "" {
				name = DefaultCategory
			}
			out = append(out, MenuCategory{Name: name, Items: append([]MenuItem(nil), c.Items...)})
		}
		return out
	}

	flat := m.Items
	if len(flat) == 0 {
		flat = m.Legacy
	}
	var out []MenuCategory
	index := make(map[string]int)
	for _, it := range flat {
		name := it.Category
		if name == "" {
			name = DefaultCategory
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, MenuCategory{Name: name})
		}
		out[i].Items = append(out[i].Items, it)
	}
	return out
}

// ItemMeta is one entry of GET /ai/tags.
type ItemMeta struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Allergens   []string `json:"allergens,omitempty"`
	Tags        []string `json:"tags"`
}

type SearchResult struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Score float64         `json:"score"`
	Tags  []string        `json:"tags"`
}
