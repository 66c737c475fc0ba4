package models

import "time"

// User is the backend user record returned by every auth endpoint.
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Age             *int       `json:"age,omitempty"`
	EmailVerified   bool       `json:"email_verified,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	TableID         string     `json:"table_id,omitempty"`
}

// IsVerified reports whether the backend marked the email as verified.
func (u *User) IsVerified() bool {
	return u.EmailVerified || u.EmailVerifiedAt != nil
}

// AuthConfig is GET /auth/config.
type AuthConfig struct {
	GoogleClientID string `json:"google_client_id"`
}

// EmailAction is the reply of the password reset and email verification
// start endpoints. Outside production the backend may echo the link or token.
type EmailAction struct {
	OK         bool   `json:"ok"`
	Link       string `json:"link,omitempty"`
	DebugToken string `json:"debug_token,omitempty"`
}
