package backend

import (
	"context"
	"net/url"
	"strconv"

	"qrbar/models"
)

func (c *Client) GetMenu(ctx context.Context, tableID string) (*models.Menu, error) {
	q := url.Values{}
	if tableID != "" {
		q.Set("table_id", tableID)
	}
	var menu models.Menu
	if err := c.do(ctx, "GET", "/menu", q, nil, &menu); err != nil {
		return nil, err
	}
	if menu.TableID == "" {
		menu.TableID = tableID
	}
	return &menu, nil
}

// GetTags returns item metadata (tags, allergens) keyed implicitly by id.
func (c *Client) GetTags(ctx context.Context) ([]models.ItemMeta, error) {
	var resp struct {
		Items []models.ItemMeta `json:"items"`
	}
	if err := c.do(ctx, "GET", "/ai/tags", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Results []models.SearchResult `json:"results"`
	}
	if err := c.do(ctx, "GET", "/ai/search", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
