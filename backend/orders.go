package backend

import (
	"context"

	"qrbar/models"
)

func (c *Client) CreateOrder(ctx context.Context, order models.OrderRequest) (*models.OrderReceipt, error) {
	var receipt models.OrderReceipt
	if err := c.do(ctx, "POST", "/orders/", nil, order, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
