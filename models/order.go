package models

import "github.com/shopspring/decimal"

type OrderLine struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// OrderRequest is the POST /orders/ body. UserID is sent as null when absent.
type OrderRequest struct {
	TableID string      `json:"table_id"`
	UserID  *int64      `json:"user_id"`
	Items   []OrderLine `json:"items"`
}

// OrderReceipt is the server's answer; the order id is assigned there.
type OrderReceipt struct {
	ID            int64           `json:"id"`
	UserID        *int64          `json:"user_id,omitempty"`
	TableID       string          `json:"table_id,omitempty"`
	Status        string          `json:"status,omitempty"`
	TotalQuantity int             `json:"total_quantity,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}
