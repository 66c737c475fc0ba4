package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrbar/backend"
	"qrbar/models"
)

func barMenu() *models.Menu {
	return &models.Menu{
		TableID: "7",
		Items: []models.MenuItem{
			item(1, "Espresso", "1.20"),
			{ID: 2, Name: "Cappuccino", Price: decimal.RequireFromString("1.60"), Category: "Caffetteria"},
			{ID: 3, Name: "Spritz", Price: decimal.NewFromInt(5), Category: "Aperitivi"},
			{ID: 4, Name: "Analcolico", Price: decimal.NewFromInt(4), Category: "Aperitivi"},
		},
	}
}

func barMeta() []models.ItemMeta {
	return []models.ItemMeta{
		{ID: 2, Tags: []string{"Hot", "milk"}},
		{ID: 3, Tags: []string{"alcohol", "cold"}},
		{ID: 4, Tags: []string{"cold", "vegan"}},
	}
}

func loadedCatalog(t *testing.T) *Catalog {
	t.Helper()
	api := newFakeAPI()
	api.getMenu = func(context.Context, string) (*models.Menu, error) { return barMenu(), nil }
	api.getTags = func(context.Context) ([]models.ItemMeta, error) { return barMeta(), nil }
	c := NewCatalog(api, "7")
	require.NoError(t, c.Load(context.Background()))
	return c
}

func names(items []models.MenuItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func TestCatalog_LoadGroupsFlatMenu(t *testing.T) {
	c := loadedCatalog(t)

	assert.True(t, c.Loaded())
	assert.Equal(t, []string{models.DefaultCategory, "Caffetteria", "Aperitivi"}, c.Categories())
	it, ok := c.Item(1)
	require.True(t, ok)
	assert.Equal(t, models.DefaultCategory, it.Category)
	assert.Equal(t, []string{"alcohol", "cold", "hot", "milk", "vegan"}, c.AvailableTags())
	assert.Equal(t, []string{"hot", "milk"}, c.ItemTags(2))
}

func TestCatalog_TagFilterIsConjunctive(t *testing.T) {
	c := loadedCatalog(t)

	assert.Len(t, c.FilteredItems(""), 4)

	assert.True(t, c.ToggleTag("cold"))
	assert.Equal(t, []string{"Spritz", "Analcolico"}, names(c.FilteredItems("")))

	assert.True(t, c.ToggleTag(" Vegan "))
	assert.Equal(t, []string{"Analcolico"}, names(c.FilteredItems("")))
	assert.Empty(t, c.FilteredItems("Caffetteria"))
	assert.Equal(t, []string{"cold", "vegan"}, c.SelectedTags())

	assert.False(t, c.ToggleTag("vegan"))
	assert.Equal(t, []string{"cold"}, c.SelectedTags())

	c.ClearTags()
	assert.Empty(t, c.SelectedTags())
	assert.Equal(t, []string{"Cappuccino"}, names(c.FilteredItems("Caffetteria")))
}

func TestCatalog_FilterResults(t *testing.T) {
	c := loadedCatalog(t)
	results := []models.SearchResult{
		{ID: 3, Name: "Spritz", Tags: []string{"alcohol", "cold"}},
		{ID: 4, Name: "Analcolico"},
		{ID: 2, Name: "Cappuccino", Tags: []string{"hot"}},
	}

	assert.Len(t, c.FilterResults(results), 3)

	c.ToggleTag("cold")
	got := c.FilterResults(results)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(4), got[1].ID)
}

func TestCatalog_MetadataFailureKeepsMenu(t *testing.T) {
	api := newFakeAPI()
	api.getMenu = func(context.Context, string) (*models.Menu, error) { return barMenu(), nil }
	api.getTags = func(context.Context) ([]models.ItemMeta, error) { return nil, backend.ErrTransport }
	c := NewCatalog(api, "7")

	require.NoError(t, c.Load(context.Background()))
	assert.Len(t, c.FilteredItems(""), 4)
	assert.Empty(t, c.AvailableTags())
}

func TestCatalog_MenuFailure(t *testing.T) {
	api := newFakeAPI()
	api.getMenu = func(context.Context, string) (*models.Menu, error) { return nil, backend.ErrTransport }
	c := NewCatalog(api, "7")

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrTransport))
	assert.False(t, c.Loaded())
	assert.Empty(t, c.Categories())
}
