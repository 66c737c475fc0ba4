package services

import (
	"errors"
	"fmt"

	"qrbar/backend"
	"qrbar/lang"
)

var (
	ErrCartEmpty           = errors.New("cart is empty")
	ErrSessionNotReady     = errors.New("session is not resolved")
	ErrResolutionInFlight  = errors.New("session resolution already in progress")
	ErrSubmissionInFlight  = errors.New("order submission already in progress")
	ErrEmptyProfileUpdate  = errors.New("profile update has no fields")
	ErrInvalidRegistration = errors.New("email and a password of at least 8 characters are required")
	ErrMissingEmail        = errors.New("email is required")
	ErrMissingCredential   = errors.New("credential is required")
	ErrLoginThrottled      = errors.New("too many failed logins")
	ErrUnknownItem         = errors.New("menu item not found")

	// ErrOrderAlreadyPlaced is an empty cart right after a successful order.
	ErrOrderAlreadyPlaced = fmt.Errorf("%w: order already placed", ErrCartEmpty)
)

// ThrottleError carries the remaining cooldown of a throttled login.
type ThrottleError struct {
	WaitSeconds int
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("too many failed logins, retry in %ds", e.WaitSeconds)
}

func (e *ThrottleError) Is(target error) bool {
	return target == ErrLoginThrottled
}

// UserMessage maps err to the text shown to the customer.
func UserMessage(langCode string, err error) string {
	if err == nil {
		return ""
	}

	var te *ThrottleError
	if errors.As(err, &te) {
		return lang.T(langCode, "throttled", te.WaitSeconds)
	}
	var se *backend.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}

	switch {
	case errors.Is(err, backend.ErrTransport):
		return lang.T(langCode, "network_error")
	case errors.Is(err, ErrEmptyProfileUpdate):
		return lang.T(langCode, "profile_empty")
	case errors.Is(err, ErrInvalidRegistration):
		return lang.T(langCode, "invalid_register")
	case errors.Is(err, ErrCartEmpty):
		return lang.T(langCode, "cart_empty")
	case errors.Is(err, ErrSessionNotReady):
		return lang.T(langCode, "not_ready")
	case errors.Is(err, ErrSubmissionInFlight):
		return lang.T(langCode, "order_in_flight")
	case errors.Is(err, ErrResolutionInFlight):
		return lang.T(langCode, "in_flight")
	case errors.Is(err, ErrSessionExpired):
		return lang.T(langCode, "session_expired")
	case errors.Is(err, ErrUnknownItem):
		return lang.T(langCode, "item_unknown")
	case errors.Is(err, ErrMissingEmail):
		return lang.T(langCode, "email_required")
	case errors.Is(err, ErrMissingCredential):
		return lang.T(langCode, "google_usage")
	}
	return lang.T(langCode, "generic_error")
}
