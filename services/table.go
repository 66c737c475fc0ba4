package services

import (
	"context"
	"sync"
	"time"

	"qrbar/models"
)

// Backend is everything a table session needs from the API.
type Backend interface {
	AuthAPI
	OrderAPI
	CatalogAPI
	SearchAPI
}

type TableDeps struct {
	API            Backend
	Cache          IdentityCache
	Throttle       *LoginThrottle
	SearchDebounce time.Duration
	SearchLimit    int
}

// TableSession bundles the state of one customer (scope) at one table.
type TableSession struct {
	Scope   string
	TableID string

	Cart    *Cart
	Session *SessionManager
	Catalog *Catalog
	Search  *Searcher
	Orders  *Submitter

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewTableSession(deps TableDeps, scope, tableID string) *TableSession {
	return &TableSession{
		Scope:   scope,
		TableID: tableID,
		Cart:    NewCart(),
		Session: NewSessionManager(deps.API, deps.Cache, deps.Throttle, scope, tableID),
		Catalog: NewCatalog(deps.API, tableID),
		Search:  NewSearcher(deps.API, deps.SearchDebounce, deps.SearchLimit),
		Orders:  NewSubmitter(deps.API),
	}
}

// Start restores the identity, loads the catalog and starts periodic
// revalidation. A catalog error takes precedence over a session error.
func (t *TableSession) Start(ctx context.Context, revalidateEvery time.Duration) error {
	runCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.cancel = cancel
	t.mu.Unlock()

	catalogErr := t.Catalog.Load(ctx)
	sessionErr := t.Session.Init(ctx)
	t.Session.StartRevalidation(runCtx, revalidateEvery)

	if catalogErr != nil {
		return catalogErr
	}
	return sessionErr
}

// AddToCart adds a catalog item, or an item only known from search results.
func (t *TableSession) AddToCart(productID int64, quantity float64) (models.MenuItem, error) {
	it, ok := t.Catalog.Item(productID)
	if !ok {
		r, found := t.Search.Result(productID)
		if !found {
			return models.MenuItem{}, ErrUnknownItem
		}
		it = models.MenuItem{ID: r.ID, Name: r.Name, Price: r.Price}
	}
	t.Cart.AddItem(it, quantity)
	t.Orders.ClearFeedback()
	return it, nil
}

func (t *TableSession) CanCheckout() bool {
	return t.Orders.CanSubmit(t.Cart, t.Session.Snapshot())
}

// Checkout submits the cart for the current identity.
func (t *TableSession) Checkout(ctx context.Context) (*models.OrderReceipt, error) {
	if t.Orders.InFlight() {
		return nil, ErrSubmissionInFlight
	}
	if t.Cart.IsEmpty() {
		if t.Orders.Feedback().Kind == FeedbackSuccess {
			return nil, ErrOrderAlreadyPlaced
		}
		return nil, ErrCartEmpty
	}
	sess := t.Session.Snapshot()
	if !sess.Resolved() {
		return nil, ErrSessionNotReady
	}
	return t.Orders.Submit(ctx, t.Cart, sess)
}

// Card renders the current cart card.
func (t *TableSession) Card(langCode string) CardContent {
	return BuildCartCard(t.Cart.Snapshot(), t.Session.Snapshot(), t.Orders.Feedback(), t.CanCheckout(), langCode)
}

// Close stops revalidation and pending searches.
func (t *TableSession) Close() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.mu.Unlock()
	t.Search.Stop()
}
