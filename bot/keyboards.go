package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"qrbar/lang"
	"qrbar/models"
	"qrbar/services"
)

// Telegram rejects callback data longer than 64 bytes.
const maxCallbackData = 64

// cardMarkup converts CardContent.Buttons to a Telegram inline keyboard.
func cardMarkup(c services.CardContent) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// categoryKeyboard lists the categories by index; names may be too long for callback data.
func categoryKeyboard(langCode string, categories []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, name := range categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(name, "cat:"+strconv.Itoa(i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏷 Tag", "tags"),
		tgbotapi.NewInlineKeyboardButtonData(lang.T(langCode, "view_cart"), "cart"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func priceLabel(name, price string, qty int) string {
	label := fmt.Sprintf("%s  € %s", name, price)
	if qty > 0 {
		label += fmt.Sprintf(" (×%d)", qty)
	}
	return label
}

// itemsKeyboard has one add button per item; qty reports how many are in the cart.
func itemsKeyboard(langCode string, items []models.MenuItem, qty func(int64) int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, it := range items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				priceLabel(it.Name, it.Price.StringFixed(2), qty(it.ID)),
				"add:"+strconv.FormatInt(it.ID, 10),
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(lang.T(langCode, "back"), "back"),
		tgbotapi.NewInlineKeyboardButtonData(lang.T(langCode, "view_cart"), "cart"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func searchKeyboard(langCode string, results []models.SearchResult, qty func(int64) int) tgbotapi.InlineKeyboardMarkup {
	items := make([]models.MenuItem, 0, len(results))
	for _, r := range results {
		items = append(items, models.MenuItem{ID: r.ID, Name: r.Name, Price: r.Price})
	}
	return itemsKeyboard(langCode, items, qty)
}

// maxToastTags caps how many of an item's tags the add toast lists.
const maxToastTags = 3

// addedToast confirms an add and names the first few tags of the item.
func addedToast(langCode, name string, qty int, tags []string) string {
	text := lang.T(langCode, "added", name, qty)
	if len(tags) > maxToastTags {
		tags = tags[:maxToastTags]
	}
	if len(tags) > 0 {
		text += " · " + strings.Join(tags, ", ")
	}
	return text
}

// tagsKeyboard shows every tag with a check mark on the selected ones.
func tagsKeyboard(langCode string, available, selected []string) tgbotapi.InlineKeyboardMarkup {
	on := make(map[string]bool, len(selected))
	for _, t := range selected {
		on[t] = true
	}
	var (
		rows [][]tgbotapi.InlineKeyboardButton
		row  []tgbotapi.InlineKeyboardButton
	)
	for _, t := range available {
		data := "tag:" + t
		if len(data) > maxCallbackData {
			continue
		}
		label := t
		if on[t] {
			label = "✅ " + t
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	last := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData(lang.T(langCode, "back"), "back")}
	if len(selected) > 0 {
		last = append(last, tgbotapi.NewInlineKeyboardButtonData("✖", "tags:clear"))
	}
	rows = append(rows, last)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// parseID extracts the numeric id of callback data like "add:12".
func parseID(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseProfileArgs reads "name=Ada Lovelace phone=123 age=30". Words
// without "=" continue the previous value; unknown keys are ignored.
func parseProfileArgs(args string) services.ProfileUpdate {
	var (
		upd services.ProfileUpdate
		key string
	)
	values := make(map[string][]string)
	for _, tok := range strings.Fields(args) {
		if k, v, ok := strings.Cut(tok, "="); ok {
			key = strings.ToLower(k)
			values[key] = append(values[key][:0], v)
			continue
		}
		if key != "" {
			values[key] = append(values[key], tok)
		}
	}
	join := func(k string) string { return strings.Join(values[k], " ") }
	upd.Name = join("name")
	upd.Email = join("email")
	upd.Phone = join("phone")
	upd.Age = join("age")
	return upd
}

// parseRegisterArgs reads "email password [name] [surname]".
func parseRegisterArgs(args string) (services.RegisterInput, bool) {
	f := strings.Fields(args)
	if len(f) < 2 {
		return services.RegisterInput{}, false
	}
	in := services.RegisterInput{Email: f[0], Password: f[1]}
	if len(f) > 2 {
		in.Name = f[2]
	}
	if len(f) > 3 {
		in.Surname = strings.Join(f[3:], " ")
	}
	return in, true
}

// validSearch reports whether q is long enough to be sent.
func validSearch(q string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(q)) >= services.MinSearchLen
}
