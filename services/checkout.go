package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"qrbar/lang"
	"qrbar/models"
)

type OrderAPI interface {
	CreateOrder(ctx context.Context, order models.OrderRequest) (*models.OrderReceipt, error)
}

type FeedbackKind string

const (
	FeedbackNone    FeedbackKind = ""
	FeedbackSuccess FeedbackKind = "success"
	FeedbackError   FeedbackKind = "error"
)

// Feedback is the outcome of the last submission, shown on the cart card.
type Feedback struct {
	Kind    FeedbackKind
	OrderID int64
	Err     error
}

func (f Feedback) Text(langCode string) string {
	switch f.Kind {
	case FeedbackSuccess:
		return lang.T(langCode, "order_sent", f.OrderID)
	case FeedbackError:
		return UserMessage(langCode, f.Err)
	}
	return ""
}

// Submitter turns the cart into an order. At most one submission runs at a
// time; extra calls while one is in flight return ErrSubmissionInFlight.
type Submitter struct {
	api      OrderAPI
	inFlight atomic.Bool

	mu       sync.Mutex
	feedback Feedback
}

func NewSubmitter(api OrderAPI) *Submitter {
	return &Submitter{api: api}
}

func (s *Submitter) InFlight() bool {
	return s.inFlight.Load()
}

func (s *Submitter) Feedback() Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedback
}

// ClearFeedback drops the last outcome, e.g. when the cart changes again.
func (s *Submitter) ClearFeedback() {
	s.setFeedback(Feedback{})
}

func (s *Submitter) setFeedback(f Feedback) {
	s.mu.Lock()
	s.feedback = f
	s.mu.Unlock()
}

// CanSubmit reports whether checkout should be offered.
func (s *Submitter) CanSubmit(cart *Cart, session Session) bool {
	return !cart.IsEmpty() && !s.InFlight() && session.Resolved()
}

// Submit sends the cart as an order for session. On success the cart is
// cleared; on failure it is left untouched for a retry.
func (s *Submitter) Submit(ctx context.Context, cart *Cart, session Session) (*models.OrderReceipt, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	snap := cart.Snapshot()
	if len(snap.Lines) == 0 {
		s.setFeedback(Feedback{Kind: FeedbackError, Err: ErrCartEmpty})
		return nil, ErrCartEmpty
	}
	if !session.Resolved() {
		s.setFeedback(Feedback{Kind: FeedbackError, Err: ErrSessionNotReady})
		return nil, ErrSessionNotReady
	}

	req := orderRequest(snap, session)
	receipt, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("table_id", session.TableID).Int64("user_id", session.UserID).Msg("order submission failed")
		s.setFeedback(Feedback{Kind: FeedbackError, Err: err})
		return nil, err
	}

	cart.Clear()
	s.setFeedback(Feedback{Kind: FeedbackSuccess, OrderID: receipt.ID})
	log.Info().
		Int64("order_id", receipt.ID).
		Str("table_id", session.TableID).
		Int64("user_id", session.UserID).
		Int("items", snap.TotalQuantity).
		Str("amount", snap.TotalAmount.StringFixed(2)).
		Msg("order submitted")
	return receipt, nil
}

func orderRequest(snap CartSnapshot, session Session) models.OrderRequest {
	req := models.OrderRequest{
		TableID: session.TableID,
		Items:   make([]models.OrderLine, 0, len(snap.Lines)),
	}
	if session.UserID != 0 {
		id := session.UserID
		req.UserID = &id
	}
	for _, l := range snap.Lines {
		price, _ := l.UnitPrice.Float64()
		req.Items = append(req.Items, models.OrderLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: price,
			Quantity:  l.Quantity,
		})
	}
	return req
}
