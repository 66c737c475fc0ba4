package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"qrbar/lang"
	"qrbar/services"
)

func (b *Bot) handleMessage(ctx context.Context, c *chatState, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !msg.IsCommand() {
		// plain text is treated as a search query
		if t, _ := c.current(); t != nil && strings.TrimSpace(msg.Text) != "" {
			b.handleSearch(ctx, chatID, c, msg.Text)
		}
		return
	}

	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	if cmd == "start" {
		b.handleStart(ctx, chatID, c, args)
		return
	}

	t, langCode := c.current()
	if t == nil {
		b.send(chatID, lang.T(langCode, "need_table"))
		return
	}

	switch cmd {
	case "menu":
		b.sendCategories(chatID, c)
	case "cart":
		b.showCard(chatID, c)
	case "search":
		b.handleSearch(ctx, chatID, c, args)
	case "tags":
		b.sendTags(chatID, c, 0)
	case "guest":
		b.resolved(chatID, c, t.Session.ContinueAsGuest(ctx))
	case "login":
		b.forgetSecret(chatID, msg.MessageID)
		f := strings.Fields(args)
		if len(f) != 2 {
			b.send(chatID, lang.T(langCode, "login_usage"))
			return
		}
		b.resolved(chatID, c, t.Session.Login(ctx, f[0], f[1]))
	case "register":
		b.forgetSecret(chatID, msg.MessageID)
		in, ok := parseRegisterArgs(args)
		if !ok {
			b.send(chatID, lang.T(langCode, "register_usage"))
			return
		}
		b.resolved(chatID, c, t.Session.Register(ctx, in))
	case "google":
		b.handleGoogle(ctx, chatID, c, args)
	case "profile":
		b.handleProfile(ctx, chatID, c, args)
	case "logout":
		if err := t.Session.Logout(ctx); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("logout")
		}
		b.send(chatID, lang.T(langCode, "logged_out"))
		b.refreshCard(chatID, c)
	case "reset":
		b.handleEmailAction(chatID, langCode, "/reset", args, func(email string) error {
			res, err := t.Session.RequestPasswordReset(ctx, email)
			if err == nil {
				b.sendEmailResult(chatID, langCode, res.Link, res.DebugToken)
			}
			return err
		})
	case "verify":
		b.handleEmailAction(chatID, langCode, "/verify", args, func(email string) error {
			res, err := t.Session.RequestEmailVerification(ctx, email)
			if err == nil {
				b.sendEmailResult(chatID, langCode, res.Link, res.DebugToken)
			}
			return err
		})
	case "clear":
		t.Cart.Clear()
		t.Orders.ClearFeedback()
		b.send(chatID, lang.T(langCode, "cart_cleared"))
		b.refreshCard(chatID, c)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, c *chatState, tableID string) {
	_, langCode := c.current()
	if tableID == "" {
		if t, _ := c.current(); t != nil {
			b.sendCategories(chatID, c)
			return
		}
		b.send(chatID, lang.T(langCode, "need_table"))
		return
	}
	t := b.openTable(ctx, chatID, c, tableID)
	b.send(chatID, lang.T(langCode, "welcome", tableID))
	if t.Catalog.Loaded() {
		b.sendCategories(chatID, c)
	}
	b.showCard(chatID, c)
}

// forgetSecret deletes a message that carried a password.
func (b *Bot) forgetSecret(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Msg("delete credential message")
	}
}

// resolved reports the outcome of a session resolution.
func (b *Bot) resolved(chatID int64, c *chatState, err error) {
	t, langCode := c.current()
	if err != nil {
		b.sendError(chatID, langCode, err)
	} else {
		b.send(chatID, services.SessionLabel(langCode, t.Session.Snapshot()))
	}
	b.refreshCard(chatID, c)
}

func (b *Bot) handleGoogle(ctx context.Context, chatID int64, c *chatState, credential string) {
	t, langCode := c.current()
	enabled, err := t.Session.GoogleEnabled(ctx)
	if err != nil {
		b.sendError(chatID, langCode, err)
		return
	}
	if !enabled {
		b.send(chatID, lang.T(langCode, "google_disabled"))
		return
	}
	if credential == "" {
		b.send(chatID, lang.T(langCode, "google_usage"))
		return
	}
	b.resolved(chatID, c, t.Session.SignInWithGoogle(ctx, credential))
}

func (b *Bot) handleProfile(ctx context.Context, chatID int64, c *chatState, args string) {
	t, langCode := c.current()
	if args == "" {
		b.send(chatID, lang.T(langCode, "profile_usage"))
		return
	}
	if err := t.Session.UpdateProfile(ctx, parseProfileArgs(args)); err != nil {
		b.sendError(chatID, langCode, err)
		return
	}
	b.send(chatID, lang.T(langCode, "profile_updated"))
	b.refreshCard(chatID, c)
}

func (b *Bot) handleEmailAction(chatID int64, langCode, command, email string, run func(email string) error) {
	err := run(email)
	if errors.Is(err, services.ErrMissingEmail) {
		b.send(chatID, lang.T(langCode, "email_usage", command))
		return
	}
	if err != nil {
		b.sendError(chatID, langCode, err)
	}
}

func (b *Bot) sendEmailResult(chatID int64, langCode, link, token string) {
	text := lang.T(langCode, "email_sent")
	if link != "" {
		text += "\n" + lang.T(langCode, "email_link", link)
	} else if token != "" {
		text += "\n" + lang.T(langCode, "email_link", token)
	}
	b.send(chatID, text)
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, c *chatState, q string) {
	t, langCode := c.current()
	if strings.TrimSpace(q) == "" {
		// bare /search repeats the results of the active query
		if cur := t.Search.CurrentQuery(); validSearch(cur) {
			results, err := t.Search.Results()
			b.sendSearchResults(chatID, c, t, services.SearchUpdate{Query: cur, Results: results, Err: err})
			return
		}
	}
	if !validSearch(q) {
		b.send(chatID, lang.T(langCode, "search_usage"))
		return
	}
	t.Search.Query(ctx, q)
}

func (b *Bot) sendCategories(chatID int64, c *chatState) {
	t, langCode := c.current()
	categories := t.Catalog.Categories()
	if len(categories) == 0 {
		b.send(chatID, lang.T(langCode, "menu_unavailable"))
		return
	}
	b.sendWithInline(chatID, lang.T(langCode, "choose_category"), categoryKeyboard(langCode, categories))
}

func (b *Bot) categoryItems(chatID int64, c *chatState, index int, editMsgID int) {
	t, langCode := c.current()
	categories := t.Catalog.Categories()
	if index < 0 || index >= len(categories) {
		return
	}
	name := categories[index]
	items := t.Catalog.FilteredItems(name)
	text := "📋 " + name
	if len(items) == 0 {
		text += "\n\n" + lang.T(langCode, "menu_empty")
	}
	kb := itemsKeyboard(langCode, items, t.Cart.Quantity)
	if editMsgID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, editMsgID, text, kb)
		if _, err := b.api.Send(edit); err == nil || strings.Contains(err.Error(), "not modified") {
			return
		}
	}
	b.sendWithInline(chatID, text, kb)
}

func (b *Bot) sendTags(chatID int64, c *chatState, editMsgID int) {
	t, langCode := c.current()
	available := t.Catalog.AvailableTags()
	if len(available) == 0 {
		b.send(chatID, lang.T(langCode, "tags_none"))
		return
	}
	kb := tagsKeyboard(langCode, available, t.Catalog.SelectedTags())
	text := lang.T(langCode, "tags_title")
	if editMsgID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, editMsgID, text, kb)
		if _, err := b.api.Send(edit); err == nil || strings.Contains(err.Error(), "not modified") {
			return
		}
	}
	b.sendWithInline(chatID, text, kb)
}

func (b *Bot) handleCallback(ctx context.Context, c *chatState, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	data := cq.Data

	toast := ""
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, toast)); err != nil {
			log.Debug().Err(err).Msg("answer callback")
		}
	}()

	t, langCode := c.current()
	if t == nil {
		b.send(chatID, lang.T(langCode, "need_table"))
		return
	}

	switch {
	case data == "noop":
	case data == "back":
		b.sendCategories(chatID, c)
	case data == "cart":
		b.showCard(chatID, c)
	case data == "tags":
		b.sendTags(chatID, c, 0)
	case data == "tags:clear":
		t.Catalog.ClearTags()
		b.sendTags(chatID, c, msgID)
	case strings.HasPrefix(data, "tag:"):
		t.Catalog.ToggleTag(strings.TrimPrefix(data, "tag:"))
		b.sendTags(chatID, c, msgID)
	case strings.HasPrefix(data, "cat:"):
		index, err := strconv.Atoi(strings.TrimPrefix(data, "cat:"))
		if err == nil {
			b.categoryItems(chatID, c, index, msgID)
		}
	case strings.HasPrefix(data, "add:"):
		id, ok := parseID(data, "add:")
		if !ok {
			return
		}
		it, err := t.AddToCart(id, 1)
		if err != nil {
			toast = services.UserMessage(langCode, err)
			return
		}
		toast = addedToast(langCode, it.Name, t.Cart.Quantity(id), t.Catalog.ItemTags(id))
		b.refreshCard(chatID, c)
	case strings.HasPrefix(data, "inc:"):
		if id, ok := parseID(data, "inc:"); ok {
			t.Cart.Increment(id)
			t.Orders.ClearFeedback()
			b.refreshCard(chatID, c)
		}
	case strings.HasPrefix(data, "dec:"):
		if id, ok := parseID(data, "dec:"); ok {
			t.Cart.Decrement(id)
			t.Orders.ClearFeedback()
			b.refreshCard(chatID, c)
		}
	case strings.HasPrefix(data, "rm:"):
		if id, ok := parseID(data, "rm:"); ok {
			t.Cart.RemoveItem(id)
			t.Orders.ClearFeedback()
			b.refreshCard(chatID, c)
		}
	case data == "guest":
		b.resolved(chatID, c, t.Session.ContinueAsGuest(ctx))
	case data == "checkout":
		b.handleCheckout(ctx, chatID, c)
	}
}

func (b *Bot) handleCheckout(ctx context.Context, chatID int64, c *chatState) {
	t, langCode := c.current()
	receipt, err := t.Checkout(ctx)
	switch {
	case errors.Is(err, services.ErrSubmissionInFlight):
		return
	case errors.Is(err, services.ErrOrderAlreadyPlaced):
		// second tap on the button of an order that already went through
	case errors.Is(err, services.ErrCartEmpty), errors.Is(err, services.ErrSessionNotReady):
		b.send(chatID, lang.T(langCode, "checkout_disabled"))
	case err == nil:
		log.Info().Int64("chat_id", chatID).Int64("order_id", receipt.ID).Msg("order placed from chat")
	}
	b.refreshCard(chatID, c)
}
