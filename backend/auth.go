package backend

import (
	"context"

	"qrbar/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Surname  string `json:"surname,omitempty"`
	TableID  string `json:"table_id,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TableID  string `json:"table_id,omitempty"`
}

type googleRequest struct {
	Credential string `json:"credential"`
	TableID    string `json:"table_id,omitempty"`
}

type emailRequest struct {
	Email string `json:"email"`
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "POST", "/auth/login", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "POST", "/auth/register", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GoogleSignIn exchanges a Google ID token for a backend identity.
func (c *Client) GoogleSignIn(ctx context.Context, credential, tableID string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "POST", "/auth/google", nil, googleRequest{Credential: credential, TableID: tableID}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentSession returns the user bound to the session cookie, or nil when
// the backend reports no active session (204 or a null body).
func (c *Client) CurrentSession(ctx context.Context) (*models.User, error) {
	var user *models.User
	if err := c.do(ctx, "GET", "/auth/session", nil, nil, &user); err != nil {
		return nil, err
	}
	if user != nil && user.ID == 0 {
		return nil, nil
	}
	return user, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "POST", "/auth/logout", nil, struct{}{}, nil)
}

func (c *Client) AuthConfig(ctx context.Context) (*models.AuthConfig, error) {
	var cfg models.AuthConfig
	if err := c.do(ctx, "GET", "/auth/config", nil, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) StartPasswordReset(ctx context.Context, email string) (*models.EmailAction, error) {
	var out models.EmailAction
	if err := c.do(ctx, "POST", "/auth/password/reset/start", nil, emailRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartEmailVerification(ctx context.Context, email string) (*models.EmailAction, error) {
	var out models.EmailAction
	if err := c.do(ctx, "POST", "/auth/email/verify/start", nil, emailRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
