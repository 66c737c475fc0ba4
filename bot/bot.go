package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"qrbar/backend"
	"qrbar/config"
	"qrbar/lang"
	"qrbar/services"
)

// chatState is everything the bot keeps for one Telegram chat.
type chatState struct {
	mu       sync.Mutex
	api      *backend.Client // one cookie jar for the chat's whole life
	table    *services.TableSession
	lang     string
	lastSeen time.Time
}

// touch records activity and reports whether the chat was idle for at least
// idle before it, which counts as the customer coming back.
func (c *chatState) touch(now time.Time, idle time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	back := !c.lastSeen.IsZero() && now.Sub(c.lastSeen) >= idle
	c.lastSeen = now
	return back
}

// client returns the chat's backend client, creating it from root once.
func (c *chatState) client(root *backend.Client) *backend.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api == nil {
		c.api = root.ForSession()
	}
	return c.api
}

func (c *chatState) current() (*services.TableSession, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table, c.lang
}

type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	backend  *backend.Client
	cache    services.IdentityCache
	throttle *services.LoginThrottle
	cards    *services.CardPointers

	chats   map[int64]*chatState
	chatsMu sync.RWMutex
}

func New(cfg *config.Config, client *backend.Client, cache services.IdentityCache) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bot", api.Self.UserName).Str("api", client.BaseURL()).Msg("telegram bot authorized")
	return &Bot{
		api:      api,
		cfg:      cfg,
		backend:  client,
		cache:    cache,
		throttle: services.NewLoginThrottle(),
		cards:    services.NewCardPointers(),
		chats:    make(map[int64]*chatState),
	}, nil
}

func (b *Bot) chat(chatID int64) *chatState {
	b.chatsMu.RLock()
	c, ok := b.chats[chatID]
	b.chatsMu.RUnlock()
	if ok {
		return c
	}
	b.chatsMu.Lock()
	defer b.chatsMu.Unlock()
	if c, ok = b.chats[chatID]; !ok {
		c = &chatState{lang: lang.Default}
		b.chats[chatID] = c
	}
	return c
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "menu", Description: "Menu"},
		tgbotapi.BotCommand{Command: "cart", Description: "Carrello / Cart"},
		tgbotapi.BotCommand{Command: "search", Description: "Cerca / Search"},
		tgbotapi.BotCommand{Command: "tags", Description: "Filtri / Filters"},
		tgbotapi.BotCommand{Command: "guest", Description: "Ospite / Guest"},
		tgbotapi.BotCommand{Command: "login", Description: "Accedi / Sign in"},
		tgbotapi.BotCommand{Command: "register", Description: "Registrati / Sign up"},
		tgbotapi.BotCommand{Command: "profile", Description: "Profilo / Profile"},
		tgbotapi.BotCommand{Command: "logout", Description: "Esci / Sign out"},
	)
	_, err := b.api.Request(cfg)
	return err
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		log.Warn().Err(err).Msg("set bot commands")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.closeAll()
			return
		case update, ok := <-updates:
			if !ok {
				b.closeAll()
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) closeAll() {
	b.chatsMu.Lock()
	defer b.chatsMu.Unlock()
	for _, c := range b.chats {
		if t, _ := c.current(); t != nil {
			t.Close()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var (
		chatID int64
		from   *tgbotapi.User
	)
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
		from = update.CallbackQuery.From
	case update.Message != nil:
		chatID = update.Message.Chat.ID
		from = update.Message.From
	default:
		return
	}

	c := b.chat(chatID)
	if from != nil && from.LanguageCode != "" {
		c.mu.Lock()
		c.lang = lang.Pick(from.LanguageCode)
		c.mu.Unlock()
	}
	if c.touch(time.Now(), b.cfg.Session.FocusIdle) {
		if t, _ := c.current(); t != nil {
			t.Session.Focus(ctx)
		}
	}

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, c, update.CallbackQuery)
		return
	}
	b.handleMessage(ctx, c, update.Message)
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send")
	}
}

func (b *Bot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send")
	}
}

// sendError reports err to the chat in the customer's language.
func (b *Bot) sendError(chatID int64, langCode string, err error) {
	b.send(chatID, services.UserMessage(langCode, err))
}

// UpsertCartCard edits the existing cart card message if we have a pointer; otherwise sends new and saves pointer.
// On "message not found" (e.g. deleted): send new message and update pointer.
// On "message is not modified": ignore.
func (b *Bot) UpsertCartCard(chatID int64, content services.CardContent) {
	if messageID, ok := b.cards.Get(chatID); ok {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, content.Text)
		if kb := cardMarkup(content); kb != nil {
			edit.ReplyMarkup = kb
		} else {
			emptyKb := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
			edit.ReplyMarkup = &emptyKb
		}
		_, err := b.api.Send(edit)
		if err == nil {
			return
		}
		errStr := err.Error()
		if strings.Contains(errStr, "not modified") {
			return
		}
		if !strings.Contains(errStr, "not found") {
			log.Error().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("edit cart card")
			return
		}
		// Fallback: send new and update pointer
	}

	msg := tgbotapi.NewMessage(chatID, content.Text)
	if kb := cardMarkup(content); kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send cart card")
		return
	}
	b.cards.Set(chatID, sent.MessageID)
}

// refreshCard re-renders the card in place if the chat has one.
func (b *Bot) refreshCard(chatID int64, c *chatState) {
	t, langCode := c.current()
	if t == nil {
		return
	}
	if _, ok := b.cards.Get(chatID); !ok {
		return
	}
	b.UpsertCartCard(chatID, t.Card(langCode))
}

// showCard moves the card to the bottom of the chat.
func (b *Bot) showCard(chatID int64, c *chatState) {
	t, langCode := c.current()
	if t == nil {
		return
	}
	b.cards.Delete(chatID)
	b.UpsertCartCard(chatID, t.Card(langCode))
}

// openTable replaces the chat's table session with a fresh one for tableID.
func (b *Bot) openTable(ctx context.Context, chatID int64, c *chatState, tableID string) *services.TableSession {
	scope := strconv.FormatInt(chatID, 10)
	t := services.NewTableSession(services.TableDeps{
		API:            c.client(b.backend),
		Cache:          b.cache,
		Throttle:       b.throttle,
		SearchDebounce: b.cfg.Search.Debounce,
		SearchLimit:    b.cfg.Search.Limit,
	}, scope, tableID)

	c.mu.Lock()
	old := c.table
	c.table = t
	langCode := c.lang
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	b.cards.Delete(chatID)

	t.Session.OnExpire(func() {
		_, l := c.current()
		b.send(chatID, lang.T(l, "session_expired"))
		b.refreshCard(chatID, c)
	})
	t.Search.OnUpdate(func(up services.SearchUpdate) {
		b.sendSearchResults(chatID, c, t, up)
	})

	if err := t.Start(ctx, b.cfg.Session.RevalidateInterval); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Str("table_id", tableID).Msg("table session start")
		if !t.Catalog.Loaded() {
			b.send(chatID, lang.T(langCode, "menu_unavailable"))
		}
	}
	log.Info().Int64("chat_id", chatID).Str("table_id", tableID).Str("state", string(t.Session.State())).Msg("table opened")
	return t
}

func (b *Bot) sendSearchResults(chatID int64, c *chatState, t *services.TableSession, up services.SearchUpdate) {
	_, langCode := c.current()
	if up.Err != nil {
		b.sendError(chatID, langCode, up.Err)
		return
	}
	if !validSearch(up.Query) {
		return
	}
	results := t.Catalog.FilterResults(up.Results)
	if len(results) == 0 {
		b.send(chatID, lang.T(langCode, "search_none"))
		return
	}
	b.sendWithInline(chatID, lang.T(langCode, "search_results", up.Query), searchKeyboard(langCode, results, t.Cart.Quantity))
}
