package bot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Wizard states. A chat is in exactly one state; free text is only consumed
// while an await state is active.
const (
	stateIdle           = "idle"
	stateAwaitToken     = "await_token"
	stateAwaitMinBuy    = "await_minbuy"
	stateAwaitEmoji     = "await_emoji"
	stateAwaitEmojiStep = "await_emoji_step"
	stateAwaitWebsite   = "await_website"
	stateAwaitTelegram  = "await_telegram"
	stateAwaitTwitter   = "await_twitter"
	stateAwaitChart     = "await_chart"
	stateAwaitMedia     = "await_media"
	stateAwaitDigest    = "await_digest"
)

// CanFinish reports whether the draft has every required field, and lists the
// missing ones for the reply message. Token, minimum buy and emoji are
// required; everything else is optional.
func CanFinish(draft models.GroupConfig) (bool, []string) {
	var missing []string
	if draft.TokenAddress == "" {
		missing = append(missing, "token")
	}
	if draft.MinBuyUSD <= 0 {
		missing = append(missing, "min buy")
	}
	if draft.Emoji == "" {
		missing = append(missing, "emoji")
	}
	return len(missing) == 0, missing
}

// NormalizeURL validates a user-supplied link, defaulting the scheme to
// https when omitted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" || !strings.Contains(u.Host, ".") {
		return "", fmt.Errorf("invalid URL host %q", u.Host)
	}
	return u.String(), nil
}

// validEmoji bounds the repeat-emoji input: no whitespace and at most eight
// runes, enough for ZWJ emoji sequences but not for sentences that would get
// repeated twenty times in an alert.
func validEmoji(s string) bool {
	if s == "" || strings.ContainsFunc(s, unicode.IsSpace) {
		return false
	}
	return utf8.RuneCountInString(s) <= 8
}

// ParseEmojiStep parses the per-emoji USD step, which must be positive.
func ParseEmojiStep(s string) (float64, error) {
	step, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if step <= 0 {
		return 0, fmt.Errorf("step must be positive")
	}
	return step, nil
}

// ParseMinBuy parses the alert threshold in USD, zero and up.
func ParseMinBuy(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$")), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if v <= 0 {
		return 0, fmt.Errorf("min buy must be positive")
	}
	return v, nil
}

func mark(set bool) string {
	if set {
		return " ✅"
	}
	return ""
}

// setupKeyboard renders the wizard menu with check marks on completed fields.
func setupKeyboard(draft models.GroupConfig) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Token"+mark(draft.TokenAddress != ""), "cfg:token"),
			tgbotapi.NewInlineKeyboardButtonData("Min Buy"+mark(draft.MinBuyUSD > 0), "cfg:minbuy"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Emoji"+mark(draft.Emoji != ""), "cfg:emoji"),
			tgbotapi.NewInlineKeyboardButtonData("Emoji Step"+mark(draft.EmojiStep > 0), "cfg:step"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Website"+mark(draft.Website != ""), "cfg:website"),
			tgbotapi.NewInlineKeyboardButtonData("Telegram"+mark(draft.TelegramLink != ""), "cfg:telegram"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("X Link"+mark(draft.TwitterLink != ""), "cfg:twitter"),
			tgbotapi.NewInlineKeyboardButtonData("Chart"+mark(draft.ChartLink != ""), "cfg:chart"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Media"+mark(draft.MediaID != ""), "cfg:media"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Finish Setup", "cfg:finish"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cfg:cancel"),
		),
	)
}

var wizardPrompts = map[string]string{
	"cfg:token":    "Send the Sui coin type to track (format: `0x...::module::TYPE`).",
	"cfg:minbuy":   "Send the minimum buy size in USD that should trigger an alert (e.g. `50`).",
	"cfg:emoji":    "Send the emoji to repeat on buy alerts (e.g. 🟢).",
	"cfg:step":     "Send the USD value of one emoji (default 5).",
	"cfg:website":  "Send the project website URL, or `skip`.",
	"cfg:telegram": "Send the Telegram group/channel link, or `skip`.",
	"cfg:twitter":  "Send the X (Twitter) profile link, or `skip`.",
	"cfg:chart":    "Send the chart / buy link, or `skip`.",
	"cfg:media":    "Send a photo or GIF to attach to every alert, or `skip`.",
}

var callbackStates = map[string]string{
	"cfg:token":    stateAwaitToken,
	"cfg:minbuy":   stateAwaitMinBuy,
	"cfg:emoji":    stateAwaitEmoji,
	"cfg:step":     stateAwaitEmojiStep,
	"cfg:website":  stateAwaitWebsite,
	"cfg:telegram": stateAwaitTelegram,
	"cfg:twitter":  stateAwaitTwitter,
	"cfg:chart":    stateAwaitChart,
	"cfg:media":    stateAwaitMedia,
}

// handleSetupCallback reacts to a wizard menu button press.
func (b *Bot) handleSetupCallback(ctx context.Context, chatID int64, data string) {
	sess := b.sessions.GetOrCreate(chatID)

	switch data {
	case "cfg:finish":
		b.finishSetup(ctx, chatID, sess)
		return
	case "cfg:cancel":
		b.sessions.Delete(chatID)
		b.reply(chatID, "Setup cancelled. Run /start to begin again.")
		return
	}

	state, ok := callbackStates[data]
	if !ok {
		b.log.Warn("Unknown setup callback", "data", data)
		return
	}
	sess.State = state
	b.reply(chatID, wizardPrompts[data])
}

// handleWizardInput consumes free text (or media) while an await state is
// active. Invalid input keeps the state so the user can just try again.
func (b *Bot) handleWizardInput(ctx context.Context, chatID int64, msg *tgbotapi.Message, sess *Session) {
	text := strings.TrimSpace(msg.Text)

	switch sess.State {
	case stateAwaitToken:
		if !utils.ValidateCoinType(text) {
			b.reply(chatID, "That does not look like a Sui coin type. Expected `0x...::module::TYPE`, try again.")
			return
		}
		sess.Draft.TokenAddress = text
		if info, err := b.market.TokenInfo(ctx, text); err == nil && info.Symbol != "" {
			sess.Draft.TokenSymbol = info.Symbol
			b.reply(chatID, fmt.Sprintf("Tracking *%s* (`%s`).", info.Symbol, utils.ShortenAddress(text, 6)))
		} else {
			sess.Draft.TokenSymbol = "TOKEN"
			b.reply(chatID, fmt.Sprintf("Tracking `%s`. Symbol lookup failed, using a placeholder.", utils.ShortenAddress(text, 6)))
		}

	case stateAwaitMinBuy:
		v, err := ParseMinBuy(text)
		if err != nil {
			b.reply(chatID, "Please send a positive USD amount, e.g. `50`.")
			return
		}
		sess.Draft.MinBuyUSD = v
		b.reply(chatID, fmt.Sprintf("Alerting on buys of $%.2f and up.", v))

	case stateAwaitEmoji:
		if !validEmoji(text) {
			b.reply(chatID, "Please send a single emoji.")
			return
		}
		sess.Draft.Emoji = text
		b.reply(chatID, "Emoji saved.")

	case stateAwaitEmojiStep:
		step, err := ParseEmojiStep(text)
		if err != nil {
			b.reply(chatID, "Please send a positive number, e.g. `5`.")
			return
		}
		sess.Draft.EmojiStep = step
		b.reply(chatID, fmt.Sprintf("One emoji per $%.2f bought.", step))

	case stateAwaitWebsite, stateAwaitTelegram, stateAwaitTwitter, stateAwaitChart:
		link := ""
		if !strings.EqualFold(text, "skip") {
			var err error
			link, err = NormalizeURL(text)
			if err != nil {
				b.reply(chatID, "That does not look like a valid link. Send a URL, or `skip` to leave it empty.")
				return
			}
		}
		switch sess.State {
		case stateAwaitWebsite:
			sess.Draft.Website = link
		case stateAwaitTelegram:
			sess.Draft.TelegramLink = link
		case stateAwaitTwitter:
			sess.Draft.TwitterLink = link
		case stateAwaitChart:
			sess.Draft.ChartLink = link
		}
		if link == "" {
			b.reply(chatID, "Skipped.")
		} else {
			b.reply(chatID, "Link saved.")
		}

	case stateAwaitMedia:
		switch {
		case strings.EqualFold(text, "skip"):
			sess.Draft.MediaID = ""
			sess.Draft.MediaKind = ""
			b.reply(chatID, "Skipped, alerts stay text-only.")
		case msg.Animation != nil:
			sess.Draft.MediaID = msg.Animation.FileID
			sess.Draft.MediaKind = "animation"
			b.reply(chatID, "Media saved, it will be attached to every alert.")
		case len(msg.Photo) > 0:
			// Telegram sends several sizes; the last is the largest.
			sess.Draft.MediaID = msg.Photo[len(msg.Photo)-1].FileID
			sess.Draft.MediaKind = "photo"
			b.reply(chatID, "Media saved, it will be attached to every alert.")
		default:
			b.reply(chatID, "Please send a photo or a GIF, or `skip`.")
			return
		}

	case stateAwaitDigest:
		b.handleDigestInput(ctx, chatID, text, sess)
		return

	default:
		return
	}

	sess.State = stateIdle
	b.sendMenu(chatID, sess.Draft)
}

// finishSetup validates the draft, persists it and closes the session.
func (b *Bot) finishSetup(ctx context.Context, chatID int64, sess *Session) {
	ok, missing := CanFinish(sess.Draft)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Setup is incomplete, still missing: %s.", strings.Join(missing, ", ")))
		b.sendMenu(chatID, sess.Draft)
		return
	}

	if sess.Draft.EmojiStep <= 0 {
		sess.Draft.EmojiStep = 5
	}
	if sess.Draft.GroupID == 0 {
		sess.Draft.GroupID = chatID
	}
	groupID := sess.Draft.GroupID

	if err := b.groups.Save(&sess.Draft); err != nil {
		b.log.Error("Failed to save group configuration", "group", groupID, "error", err)
		b.reply(chatID, "Something went wrong saving the configuration, please try Finish again.")
		return
	}

	b.sessions.Delete(chatID)
	confirmation := fmt.Sprintf(
		"✅ Setup complete! Alerting on *%s* buys of $%.2f and up.\nUse /boost to get featured on the trending channel.",
		sess.Draft.TokenSymbol, sess.Draft.MinBuyUSD)
	b.reply(chatID, confirmation)
	if groupID != chatID {
		b.reply(groupID, confirmation)
	}
}

func (b *Bot) sendMenu(chatID int64, draft models.GroupConfig) {
	kb := setupKeyboard(draft)
	b.replyWithKeyboard(chatID, "⚙️ *Buy Alert Setup*\nPick a field to configure:", &kb)
}

// handleStart routes /start by chat type. In a group it gates on group
// admins and hands the wizard off to the admin's private chat; in a private
// chat it resumes a handed-off session.
func (b *Bot) handleStart(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.Chat.IsPrivate() {
		if sess := b.sessions.Get(chatID); sess != nil && sess.Draft.GroupID != 0 {
			b.sendMenu(chatID, sess.Draft)
			return
		}
		b.reply(chatID, "Run /start in the group you want to configure, then come back here.")
		return
	}

	if msg.From == nil {
		return
	}
	ok, err := b.isAdmin(chatID, msg.From.ID)
	if err != nil {
		b.log.Error("Failed to check group administrators", "chat", chatID, "error", err)
		b.reply(chatID, "Could not verify the group admins right now, please try again.")
		return
	}
	if !ok {
		b.reply(chatID, "Only group admins can configure buy alerts.")
		return
	}

	// A user's private chat id equals their user id.
	b.startSetup(msg.From.ID, chatID)
	b.reply(chatID, "Check your private chat with me to continue setup.")
}

// startSetup opens the wizard in setupChatID for the given group, pre-filling
// the draft from any saved config so /start doubles as an edit flow.
func (b *Bot) startSetup(setupChatID, groupID int64) {
	sess := b.sessions.GetOrCreate(setupChatID)
	if sess.Draft.GroupID != groupID {
		sess.Draft = models.GroupConfig{GroupID: groupID}
		if saved, err := b.groups.Get(groupID); err == nil {
			sess.Draft = *saved
		}
	}
	sess.State = stateIdle
	b.sendMenu(setupChatID, sess.Draft)
}
