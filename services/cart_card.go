package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"qrbar/lang"
)

// CardButton is one inline button (text + callback_data or url).
type CardButton struct {
	Text         string
	CallbackData string
}

// CardContent is the text and optional inline keyboard for a cart card.
type CardContent struct {
	Text    string
	Buttons [][]CardButton
}

// SessionLabel describes the session state in one line.
func SessionLabel(langCode string, s Session) string {
	switch s.State {
	case StateGuest:
		return lang.T(langCode, "session_guest", s.UserID)
	case StateAuthenticated:
		name := s.Profile.Name
		if name == "" {
			name = s.Profile.Email
		}
		if name == "" {
			name = "#" + strconv.FormatInt(s.UserID, 10)
		}
		return lang.T(langCode, "session_user", name)
	case StateResolving:
		return lang.T(langCode, "session_resolving")
	case StateFailed:
		return lang.T(langCode, "session_failed", UserMessage(langCode, s.Err))
	default:
		if errors.Is(s.Err, ErrSessionExpired) {
			return lang.T(langCode, "session_expired")
		}
		return lang.T(langCode, "session_unresolved")
	}
}

// BuildCartCard returns the card text and keyboard for the cart of one table.
// Each line gets −/+/✕ buttons; checkout is offered only when canSubmit.
func BuildCartCard(snap CartSnapshot, s Session, fb Feedback, canSubmit bool, langCode string) CardContent {
	var b strings.Builder
	b.WriteString("🧾 " + lang.T(langCode, "cart_title") + "\n\n")

	if len(snap.Lines) == 0 {
		b.WriteString(lang.T(langCode, "cart_empty") + "\n")
	}
	for _, l := range snap.Lines {
		fmt.Fprintf(&b, "• %s × %d  € %s\n", l.Name, l.Quantity, l.Subtotal().StringFixed(2))
	}
	if len(snap.Lines) > 0 {
		b.WriteString("\n" + lang.T(langCode, "cart_total", snap.TotalQuantity, snap.TotalAmount.StringFixed(2)) + "\n")
	}
	b.WriteString("\n" + SessionLabel(langCode, s))
	if msg := fb.Text(langCode); msg != "" {
		b.WriteString("\n\n" + msg)
	}

	var buttons [][]CardButton
	for _, l := range snap.Lines {
		id := strconv.FormatInt(l.ProductID, 10)
		buttons = append(buttons, []CardButton{
			{Text: "➖", CallbackData: "dec:" + id},
			{Text: fmt.Sprintf("%s × %d", l.Name, l.Quantity), CallbackData: "noop"},
			{Text: "➕", CallbackData: "inc:" + id},
			{Text: "✖", CallbackData: "rm:" + id},
		})
	}
	if s.State == StateUnresolved || s.State == StateFailed {
		buttons = append(buttons, []CardButton{{Text: lang.T(langCode, "guest"), CallbackData: "guest"}})
	}
	if canSubmit {
		buttons = append(buttons, []CardButton{{Text: "✅ " + lang.T(langCode, "checkout"), CallbackData: "checkout"}})
	}
	return CardContent{Text: b.String(), Buttons: buttons}
}
