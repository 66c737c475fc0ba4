package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrbar/models"
)

func newTable(t *testing.T, api *fakeAPI) *TableSession {
	t.Helper()
	if api.getMenu == nil {
		api.getMenu = func(context.Context, string) (*models.Menu, error) {
			return &models.Menu{Items: []models.MenuItem{
				item(1, "Espresso", "1.5"),
				item(7, "Spritz", "3"),
			}}, nil
		}
	}
	ts := NewTableSession(TableDeps{
		API:            api,
		Cache:          NewMemoryIdentityCache(),
		Throttle:       NewLoginThrottle(),
		SearchDebounce: 5 * time.Millisecond,
		SearchLimit:    5,
	}, "chat-1", "7")
	t.Cleanup(ts.Close)
	require.NoError(t, ts.Start(context.Background(), time.Hour))
	return ts
}

func TestTableSession_AddToCart(t *testing.T) {
	ts := newTable(t, newFakeAPI())

	_, err := ts.AddToCart(7, 1)
	require.NoError(t, err)
	_, err = ts.AddToCart(7, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, ts.Cart.Len())
	assert.Equal(t, 3, ts.Cart.Quantity(7))
	assert.Equal(t, "9.00", ts.Cart.TotalAmount().StringFixed(2))

	_, err = ts.AddToCart(99, 1)
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestTableSession_AddFromSearchResults(t *testing.T) {
	api := newFakeAPI()
	api.search = func(context.Context, string, int) ([]models.SearchResult, error) {
		return []models.SearchResult{{ID: 50, Name: "Special", Price: decimal.NewFromInt(6)}}, nil
	}
	ts := newTable(t, api)

	ts.Search.Query(context.Background(), "special")
	require.Eventually(t, func() bool { r, _ := ts.Search.Results(); return len(r) == 1 }, time.Second, 5*time.Millisecond)

	it, err := ts.AddToCart(50, 1)
	require.NoError(t, err)
	assert.Equal(t, "Special", it.Name)
	assert.Equal(t, "6", ts.Cart.TotalAmount().String())
}

func TestTableSession_CheckoutFlow(t *testing.T) {
	api := newFakeAPI()
	ts := newTable(t, api)

	_, err := ts.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrCartEmpty)
	assert.NotErrorIs(t, err, ErrOrderAlreadyPlaced)

	_, err = ts.AddToCart(1, 2)
	require.NoError(t, err)
	assert.False(t, ts.CanCheckout())
	_, err = ts.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrSessionNotReady)
	assert.Equal(t, 0, api.count("CreateOrder"))

	require.NoError(t, ts.Session.ContinueAsGuest(context.Background()))
	assert.True(t, ts.CanCheckout())

	receipt, err := ts.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), receipt.ID)
	assert.True(t, ts.Cart.IsEmpty())
	assert.Contains(t, ts.Card("it").Text, "Ordine #42 inviato!")

	_, err = ts.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrOrderAlreadyPlaced)
	assert.ErrorIs(t, err, ErrCartEmpty)
	assert.Equal(t, 1, api.count("CreateOrder"))
	assert.Contains(t, ts.Card("it").Text, "Ordine #42 inviato!")

	_, err = ts.AddToCart(1, 1)
	require.NoError(t, err)
	assert.Equal(t, FeedbackNone, ts.Orders.Feedback().Kind)
}
