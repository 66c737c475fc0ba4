package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrbar/backend"
	"qrbar/models"
)

func guestSession() Session {
	return Session{UserID: 100, TableID: "7", State: StateGuest}
}

func TestSubmitter_SuccessClearsCart(t *testing.T) {
	api := newFakeAPI()
	var got models.OrderRequest
	api.createOrder = func(_ context.Context, order models.OrderRequest) (*models.OrderReceipt, error) {
		got = order
		return &models.OrderReceipt{ID: 42, Status: "pending"}, nil
	}
	s := NewSubmitter(api)
	cart := NewCart()
	cart.AddItem(item(1, "Espresso", "1.5"), 2)

	receipt, err := s.Submit(context.Background(), cart, guestSession())
	require.NoError(t, err)

	assert.Equal(t, int64(42), receipt.ID)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, Feedback{Kind: FeedbackSuccess, OrderID: 42}, s.Feedback())
	assert.Equal(t, "Ordine #42 inviato! Grazie.", s.Feedback().Text("it"))
	assert.False(t, s.InFlight())

	userID := int64(100)
	want := models.OrderRequest{
		TableID: "7",
		UserID:  &userID,
		Items:   []models.OrderLine{{ProductID: 1, Name: "Espresso", UnitPrice: 1.5, Quantity: 2}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order request mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitter_AbsentUserSendsNull(t *testing.T) {
	api := newFakeAPI()
	var got models.OrderRequest
	api.createOrder = func(_ context.Context, order models.OrderRequest) (*models.OrderReceipt, error) {
		got = order
		return &models.OrderReceipt{ID: 1}, nil
	}
	cart := NewCart()
	cart.AddItem(item(1, "Espresso", "1.5"), 1)

	_, err := NewSubmitter(api).Submit(context.Background(), cart, Session{TableID: "7", State: StateGuest})
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
}

func TestSubmitter_FailurePreservesCart(t *testing.T) {
	api := newFakeAPI()
	fail := true
	api.createOrder = func(context.Context, models.OrderRequest) (*models.OrderReceipt, error) {
		if fail {
			return nil, &backend.StatusError{Code: http.StatusBadRequest, Message: "Tavolo chiuso"}
		}
		return &models.OrderReceipt{ID: 7}, nil
	}
	s := NewSubmitter(api)
	cart := NewCart()
	cart.AddItem(item(1, "Espresso", "1.5"), 2)
	cart.AddItem(item(2, "Cornetto", "1.2"), 1)

	_, err := s.Submit(context.Background(), cart, guestSession())
	require.Error(t, err)
	assert.Equal(t, 2, cart.Len())
	assert.Equal(t, FeedbackError, s.Feedback().Kind)
	assert.Equal(t, "Tavolo chiuso", s.Feedback().Text("it"))
	assert.False(t, s.InFlight())
	assert.True(t, s.CanSubmit(cart, guestSession()))

	fail = false
	receipt, err := s.Submit(context.Background(), cart, guestSession())
	require.NoError(t, err)
	assert.Equal(t, int64(7), receipt.ID)
	assert.Equal(t, FeedbackSuccess, s.Feedback().Kind)
}

func TestSubmitter_TransportFailureMessage(t *testing.T) {
	api := newFakeAPI()
	api.createOrder = func(context.Context, models.OrderRequest) (*models.OrderReceipt, error) {
		return nil, backend.ErrTransport
	}
	s := NewSubmitter(api)
	cart := NewCart()
	cart.AddItem(item(1, "Espresso", "1.5"), 1)

	_, err := s.Submit(context.Background(), cart, guestSession())
	assert.ErrorIs(t, err, backend.ErrTransport)
	assert.Equal(t, "Cannot reach the server. Check your connection and retry.", s.Feedback().Text("en"))
}

func TestSubmitter_DoubleSubmitSendsOneOrder(t *testing.T) {
	api := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	api.createOrder = func(context.Context, models.OrderRequest) (*models.OrderReceipt, error) {
		close(started)
		<-release
		return &models.OrderReceipt{ID: 42}, nil
	}
	s := NewSubmitter(api)
	cart := NewCart()
	cart.AddItem(item(1, "Espresso", "1.5"), 2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.Submit(context.Background(), cart, guestSession())
		assert.NoError(t, err)
	}()
	<-started

	assert.True(t, s.InFlight())
	assert.False(t, s.CanSubmit(cart, guestSession()))
	for i := 0; i < 5; i++ {
		_, err := s.Submit(context.Background(), cart, guestSession())
		assert.ErrorIs(t, err, ErrSubmissionInFlight)
	}

	close(release)
	wg.Wait()
	assert.Equal(t, 1, api.count("CreateOrder"))
	assert.True(t, cart.IsEmpty())
}

func TestSubmitter_ConcurrentSubmitsSendAtMostOne(t *testing.T) {
	api := newFakeAPI()
	release := make(chan struct{})
	api.createOrder = func(context.Context, models.OrderRequest) (*models.OrderReceipt, error) {
		<-release
		return &models.OrderReceipt{ID: 1}, nil
	}
	s := NewSubmitter(api)
	cart := NewCart()
	cart.AddItem(item(1, "Espresso", "1.5"), 1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Submit(context.Background(), cart, guestSession())
		}()
	}
	close(release)
	wg.Wait()
	assert.Equal(t, 1, api.count("CreateOrder"))
}

func TestSubmitter_LocalRejections(t *testing.T) {
	api := newFakeAPI()
	s := NewSubmitter(api)

	_, err := s.Submit(context.Background(), NewCart(), guestSession())
	assert.ErrorIs(t, err, ErrCartEmpty)

	cart := NewCart()
	cart.AddItem(item(1, "Espresso", "1.5"), 1)
	for _, state := range []SessionState{StateUnresolved, StateResolving, StateFailed} {
		sess := Session{TableID: "7", State: state}
		assert.False(t, s.CanSubmit(cart, sess), state)
		_, err = s.Submit(context.Background(), cart, sess)
		assert.ErrorIs(t, err, ErrSessionNotReady)
	}
	assert.Equal(t, 0, api.count("CreateOrder"))
	assert.Equal(t, 1, cart.Len())
}

func TestSubmitter_CanSubmit(t *testing.T) {
	s := NewSubmitter(newFakeAPI())
	cart := NewCart()
	assert.False(t, s.CanSubmit(cart, guestSession()))
	cart.AddItem(item(1, "Espresso", "1.5"), 1)
	assert.True(t, s.CanSubmit(cart, guestSession()))
	assert.True(t, s.CanSubmit(cart, Session{UserID: 1, TableID: "7", State: StateAuthenticated}))
}
