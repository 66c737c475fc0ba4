package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callbacks(c CardContent) []string {
	var out []string
	for _, row := range c.Buttons {
		for _, b := range row {
			out = append(out, b.CallbackData)
		}
	}
	return out
}

func TestBuildCartCard_Empty(t *testing.T) {
	card := BuildCartCard(NewCart().Snapshot(), Session{State: StateUnresolved}, Feedback{}, false, "en")

	assert.Contains(t, card.Text, "Your cart is empty.")
	assert.Contains(t, card.Text, "You are not identified yet")
	assert.Equal(t, []string{"guest"}, callbacks(card))
}

func TestBuildCartCard_Lines(t *testing.T) {
	cart := NewCart()
	cart.AddItem(item(1, "Espresso", "1.5"), 2)
	cart.AddItem(item(7, "Spritz", "3"), 3)
	sess := Session{UserID: 9, State: StateAuthenticated, Profile: Profile{Name: "Ada"}}

	card := BuildCartCard(cart.Snapshot(), sess, Feedback{}, true, "en")

	assert.Contains(t, card.Text, "• Espresso × 2  € 3.00")
	assert.Contains(t, card.Text, "• Spritz × 3  € 9.00")
	assert.Contains(t, card.Text, "Total: 5 items, € 12.00")
	assert.Contains(t, card.Text, "Signed in as Ada")
	assert.Equal(t, []string{
		"dec:1", "noop", "inc:1", "rm:1",
		"dec:7", "noop", "inc:7", "rm:7",
		"checkout",
	}, callbacks(card))
}

func TestBuildCartCard_NoCheckoutWhenNotAllowed(t *testing.T) {
	cart := NewCart()
	cart.AddItem(item(1, "Espresso", "1.5"), 1)

	card := BuildCartCard(cart.Snapshot(), Session{State: StateResolving}, Feedback{}, false, "en")

	require.Len(t, card.Buttons, 1)
	assert.NotContains(t, callbacks(card), "checkout")
	assert.Contains(t, card.Text, "Signing in…")
}

func TestBuildCartCard_SessionLabels(t *testing.T) {
	tests := []struct {
		name string
		s    Session
		want string
	}{
		{"guest", Session{UserID: 100, State: StateGuest}, "Guest (user #100)"},
		{"email fallback", Session{UserID: 1, State: StateAuthenticated, Profile: Profile{Email: "ada@example.com"}}, "Signed in as ada@example.com"},
		{"expired", Session{State: StateUnresolved, Err: ErrSessionExpired}, "Your session expired."},
		{"failed", Session{State: StateFailed, Err: errors.New("boom")}, "Sign-in failed: Something went wrong."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := BuildCartCard(CartSnapshot{}, tt.s, Feedback{}, false, "en")
			assert.Contains(t, card.Text, tt.want)
		})
	}
}

func TestBuildCartCard_Feedback(t *testing.T) {
	card := BuildCartCard(CartSnapshot{}, Session{State: StateGuest, UserID: 1}, Feedback{Kind: FeedbackError, Err: ErrSubmissionInFlight}, false, "en")
	assert.Contains(t, card.Text, "Sending your order…")
}
