package services

import (
	"context"
	"sync"

	"qrbar/backend"
	"qrbar/models"
)

// fakeAPI implements Backend with overridable hooks and call counters.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	autoLogin      func(ctx context.Context, tableID string) (*models.User, error)
	login          func(ctx context.Context, req backend.LoginRequest) (*models.User, error)
	register       func(ctx context.Context, req backend.RegisterRequest) (*models.User, error)
	googleSignIn   func(ctx context.Context, credential, tableID string) (*models.User, error)
	currentSession func(ctx context.Context) (*models.User, error)
	updateUser     func(ctx context.Context, id int64, fields map[string]interface{}) (*models.User, error)
	logout         func(ctx context.Context) error
	authConfig     func(ctx context.Context) (*models.AuthConfig, error)
	createOrder    func(ctx context.Context, order models.OrderRequest) (*models.OrderReceipt, error)
	getMenu        func(ctx context.Context, tableID string) (*models.Menu, error)
	getTags        func(ctx context.Context) ([]models.ItemMeta, error)
	search         func(ctx context.Context, q string, limit int) ([]models.SearchResult, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) AutoLogin(ctx context.Context, tableID string) (*models.User, error) {
	f.hit("AutoLogin")
	if f.autoLogin != nil {
		return f.autoLogin(ctx, tableID)
	}
	return &models.User{ID: 100, Name: "Guest", TableID: tableID}, nil
}

func (f *fakeAPI) Login(ctx context.Context, req backend.LoginRequest) (*models.User, error) {
	f.hit("Login")
	if f.login != nil {
		return f.login(ctx, req)
	}
	return &models.User{ID: 1, Name: "Ada", Email: req.Email}, nil
}

func (f *fakeAPI) Register(ctx context.Context, req backend.RegisterRequest) (*models.User, error) {
	f.hit("Register")
	if f.register != nil {
		return f.register(ctx, req)
	}
	return &models.User{ID: 2, Name: req.Name, Email: req.Email}, nil
}

func (f *fakeAPI) GoogleSignIn(ctx context.Context, credential, tableID string) (*models.User, error) {
	f.hit("GoogleSignIn")
	if f.googleSignIn != nil {
		return f.googleSignIn(ctx, credential, tableID)
	}
	return &models.User{ID: 3, Name: "Grace", Email: "grace@example.com", EmailVerified: true}, nil
}

func (f *fakeAPI) CurrentSession(ctx context.Context) (*models.User, error) {
	f.hit("CurrentSession")
	if f.currentSession != nil {
		return f.currentSession(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) UpdateUser(ctx context.Context, id int64, fields map[string]interface{}) (*models.User, error) {
	f.hit("UpdateUser")
	if f.updateUser != nil {
		return f.updateUser(ctx, id, fields)
	}
	u := &models.User{ID: id}
	if v, ok := fields["name"].(string); ok {
		u.Name = v
	}
	return u, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.hit("Logout")
	if f.logout != nil {
		return f.logout(ctx)
	}
	return nil
}

func (f *fakeAPI) AuthConfig(ctx context.Context) (*models.AuthConfig, error) {
	f.hit("AuthConfig")
	if f.authConfig != nil {
		return f.authConfig(ctx)
	}
	return &models.AuthConfig{}, nil
}

func (f *fakeAPI) StartPasswordReset(ctx context.Context, email string) (*models.EmailAction, error) {
	f.hit("StartPasswordReset")
	return &models.EmailAction{OK: true, DebugToken: "tok-" + email}, nil
}

func (f *fakeAPI) StartEmailVerification(ctx context.Context, email string) (*models.EmailAction, error) {
	f.hit("StartEmailVerification")
	return &models.EmailAction{OK: true}, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, order models.OrderRequest) (*models.OrderReceipt, error) {
	f.hit("CreateOrder")
	if f.createOrder != nil {
		return f.createOrder(ctx, order)
	}
	return &models.OrderReceipt{ID: 42, TableID: order.TableID, Status: "pending"}, nil
}

func (f *fakeAPI) GetMenu(ctx context.Context, tableID string) (*models.Menu, error) {
	f.hit("GetMenu")
	if f.getMenu != nil {
		return f.getMenu(ctx, tableID)
	}
	return &models.Menu{TableID: tableID}, nil
}

func (f *fakeAPI) GetTags(ctx context.Context) ([]models.ItemMeta, error) {
	f.hit("GetTags")
	if f.getTags != nil {
		return f.getTags(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) Search(ctx context.Context, q string, limit int) ([]models.SearchResult, error) {
	f.hit("Search")
	if f.search != nil {
		return f.search(ctx, q, limit)
	}
	return nil, nil
}
