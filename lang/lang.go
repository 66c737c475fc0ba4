package lang

import "fmt"

const (
	It = "it"
	En = "en"
)

// Default is used when a chat has not picked a language.
const Default = It

var messages = map[string]map[string]string{
	It: {
		"welcome":            "Benvenuto al tavolo %s! Sfoglia il menu e ordina direttamente da qui.",
		"need_table":         "Scansiona il QR code del tuo tavolo per iniziare.",
		"choose_category":    "Scegli una categoria:",
		"menu_unavailable":   "Menu non disponibile al momento. Riprova tra poco.",
		"menu_empty":         "Nessun prodotto in questa categoria con i filtri scelti.",
		"item_unknown":       "Prodotto non trovato.",
		"added":              "Aggiunto: %s × %d",
		"cart_title":         "Il tuo ordine",
		"cart_empty":         "Il carrello è vuoto.",
		"cart_total":         "Totale: %d articoli, € %s",
		"cart_cleared":       "Carrello svuotato.",
		"checkout":           "Invia ordine",
		"checkout_disabled":  "Per ordinare serve un carrello non vuoto e un accesso completato.",
		"order_sent":         "Ordine #%d inviato! Grazie.",
		"order_in_flight":    "Ordine in invio, attendi…",
		"session_unresolved": "Non sei ancora identificato: continua come ospite o accedi.",
		"session_resolving":  "Accesso in corso…",
		"session_guest":      "Ospite (utente #%d)",
		"session_user":       "Connesso come %s",
		"session_failed":     "Accesso non riuscito: %s",
		"session_expired":    "La sessione è scaduta. Accedi di nuovo per ordinare.",
		"guest":              "Continua come ospite",
		"logged_out":         "Disconnesso.",
		"login_usage":        "Uso: /login email password",
		"register_usage":     "Uso: /register email password [nome] [cognome]",
		"google_usage":       "Uso: /google <credential>",
		"google_disabled":    "Accesso con Google non disponibile.",
		"profile_usage":      "Uso: /profile name=… email=… phone=… age=…",
		"profile_updated":    "Profilo aggiornato.",
		"profile_empty":      "Compila almeno un campo del profilo.",
		"email_usage":        "Uso: %s email",
		"email_sent":         "Ti abbiamo inviato un'email.",
		"email_required":     "Indica un indirizzo email.",
		"email_link":         "Link: %s",
		"search_usage":       "Uso: /search testo (almeno 2 caratteri)",
		"search_none":        "Nessun risultato.",
		"search_results":     "Risultati per \"%s\":",
		"tags_title":         "Filtri attivi (tutti devono essere presenti):",
		"tags_none":          "Nessun filtro disponibile.",
		"throttled":          "Troppi tentativi. Riprova tra %d secondi.",
		"network_error":      "Impossibile contattare il server. Controlla la connessione e riprova.",
		"in_flight":          "Operazione già in corso.",
		"invalid_register":   "Email obbligatoria e password di almeno 8 caratteri.",
		"not_ready":          "Identificati prima di continuare.",
		"generic_error":      "Si è verificato un errore. Riprova.",
		"back":               "« Categorie",
		"view_cart":          "🛒 Carrello",
	},
	En: {
		"welcome":            "Welcome to table %s! Browse the menu and order right here.",
		"need_table":         "Scan your table's QR code to start.",
		"choose_category":    "Pick a category:",
		"menu_unavailable":   "Menu unavailable right now. Try again shortly.",
		"menu_empty":         "No products in this category with the selected filters.",
		"item_unknown":       "Product not found.",
		"added":              "Added: %s × %d",
		"cart_title":         "Your order",
		"cart_empty":         "Your cart is empty.",
		"cart_total":         "Total: %d items, € %s",
		"cart_cleared":       "Cart cleared.",
		"checkout":           "Place order",
		"checkout_disabled":  "Ordering needs a non-empty cart and a completed sign-in.",
		"order_sent":         "Order #%d sent! Thank you.",
		"order_in_flight":    "Sending your order…",
		"session_unresolved": "You are not identified yet: continue as guest or sign in.",
		"session_resolving":  "Signing in…",
		"session_guest":      "Guest (user #%d)",
		"session_user":       "Signed in as %s",
		"session_failed":     "Sign-in failed: %s",
		"session_expired":    "Your session expired. Sign in again to order.",
		"guest":              "Continue as guest",
		"logged_out":         "Signed out.",
		"login_usage":        "Usage: /login email password",
		"register_usage":     "Usage: /register email password [name] [surname]",
		"google_usage":       "Usage: /google <credential>",
		"google_disabled":    "Google sign-in is not available.",
		"profile_usage":      "Usage: /profile name=… email=… phone=… age=…",
		"profile_updated":    "Profile updated.",
		"profile_empty":      "Fill in at least one profile field.",
		"email_usage":        "Usage: %s email",
		"email_sent":         "We sent you an email.",
		"email_required":     "An email address is required.",
		"email_link":         "Link: %s",
		"search_usage":       "Usage: /search text (at least 2 characters)",
		"search_none":        "No results.",
		"search_results":     "Results for \"%s\":",
		"tags_title":         "Active filters (all must match):",
		"tags_none":          "No filters available.",
		"throttled":          "Too many attempts. Try again in %d seconds.",
		"network_error":      "Cannot reach the server. Check your connection and retry.",
		"in_flight":          "Already in progress.",
		"invalid_register":   "Email is required and the password needs at least 8 characters.",
		"not_ready":          "Identify yourself first.",
		"generic_error":      "Something went wrong. Please retry.",
		"back":               "« Categories",
		"view_cart":          "🛒 Cart",
	},
}

// Pick maps a Telegram language code to a supported language.
func Pick(code string) string {
	if len(code) >= 2 {
		switch code[:2] {
		case It:
			return It
		case En:
			return En
		}
	}
	return Default
}

// T returns the message for key in langCode, formatted with args. Unknown
// languages fall back to Default, unknown keys to the key itself.
func T(langCode, key string, args ...interface{}) string {
	table, ok := messages[langCode]
	if !ok {
		table = messages[Default]
	}
	s, ok := table[key]
	if !ok {
		s = key
	}
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}
