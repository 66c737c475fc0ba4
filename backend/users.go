package backend

import (
	"context"
	"net/url"
	"strconv"

	"qrbar/models"
)

// AutoLogin asks the backend for a guest identity scoped to the table.
func (c *Client) AutoLogin(ctx context.Context, tableID string) (*models.User, error) {
	q := url.Values{}
	if tableID != "" {
		q.Set("table_id", tableID)
	}
	var user models.User
	if err := c.do(ctx, "POST", "/users/auto", q, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser sends a partial profile; only the given fields change.
func (c *Client) UpdateUser(ctx context.Context, userID int64, fields map[string]interface{}) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "PUT", "/users/"+strconv.FormatInt(userID, 10), nil, fields, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
