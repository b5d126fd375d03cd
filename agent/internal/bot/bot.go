// Package bot hosts the Telegram-facing side of the buy bot: the group setup
// wizard, the boost purchase flow and the update dispatch loop.
package bot

import (
	"context"
	"strings"
	"time"

	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/agent/internal/services"
	"moonbags-buybot/shared/config"
	"moonbags-buybot/shared/logger"
	"moonbags-buybot/shared/notifications"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "🌙 *Moonbags BuyBot*\n\n" +
	"/start - configure buy alerts for this group\n" +
	"/boost - feature your token on the trending channel\n" +
	"/confirm <digest> - confirm a boost payment\n" +
	"/cancel - abandon the current setup or boost\n" +
	"/help - this message"

type groupStore interface {
	Save(cfg *models.GroupConfig) error
	Get(groupID int64) (*models.GroupConfig, error)
}

type boostLedger interface {
	HasPayment(txDigest string) (bool, error)
	RecordPayment(txDigest, tokenAddress string, paidSUI float64) error
	Activate(tokenAddress string, expiresAt time.Time) error
}

// Bot routes Telegram updates to the wizard and boost flows.
type Bot struct {
	api      *tgbotapi.BotAPI
	groups   groupStore
	boosts   boostLedger
	verifier services.PaymentVerifier
	market   services.TokenInfoProvider
	sessions *SessionStore
	cfg      *config.Config
	log      *logger.Logger

	// announce posts to the trending channel and send delivers chat replies;
	// both are swapped out in tests. isAdmin asks Telegram for the group's
	// administrator list.
	announce func(text string) error
	send     func(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) error
	isAdmin  func(chatID, userID int64) (bool, error)
}

func NewBot(api *tgbotapi.BotAPI, groups groupStore, boosts boostLedger, verifier services.PaymentVerifier,
	market services.TokenInfoProvider, sessions *SessionStore, cfg *config.Config, log *logger.Logger) *Bot {
	b := &Bot{
		api:      api,
		groups:   groups,
		boosts:   boosts,
		verifier: verifier,
		market:   market,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		announce: notifications.SendTrendingMessage,
		send:     notifications.SendChatMessage,
	}
	b.isAdmin = b.memberIsAdmin
	return b
}

// memberIsAdmin reports whether the user is among the group's administrators.
func (b *Bot) memberIsAdmin(chatID, userID int64) (bool, error) {
	admins, err := b.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return false, err
	}
	for _, admin := range admins {
		if admin.User != nil && admin.User.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// StartListening consumes long-poll updates until the context is cancelled.
func (b *Bot) StartListening(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	b.log.Info("Telegram update listener starting")

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Telegram update listener stopping")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				b.log.Warn("Telegram update channel closed")
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Acknowledge immediately so the button stops spinning.
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Debug("Failed to answer callback query", "error", err)
	}
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	switch {
	case strings.HasPrefix(cq.Data, "cfg:"):
		b.handleSetupCallback(ctx, chatID, cq.Data)
	case strings.HasPrefix(cq.Data, "boost:"):
		b.handleBoostCallback(chatID, cq.Data)
	default:
		b.log.Warn("Unhandled callback data", "data", cq.Data)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(msg)
		case "help":
			b.reply(chatID, helpText)
		case "boost":
			b.handleBoostCommand(chatID, msg.CommandArguments())
		case "confirm":
			sess := b.sessions.Get(chatID)
			if sess == nil || sess.Order == nil {
				b.reply(chatID, "No boost order in progress, run /boost first.")
				return
			}
			b.handleDigestInput(ctx, chatID, msg.CommandArguments(), sess)
		case "cancel":
			b.sessions.Delete(chatID)
			b.reply(chatID, "Cancelled.")
		default:
			// Other bots' commands in the same group, ignore.
		}
		return
	}

	sess := b.sessions.Get(chatID)
	if sess == nil || sess.State == stateIdle {
		return
	}
	b.handleWizardInput(ctx, chatID, msg, sess)
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.send(chatID, text, nil); err != nil {
		b.log.Error("Failed to send reply", "chat", chatID, "error", err)
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if err := b.send(chatID, text, kb); err != nil {
		b.log.Error("Failed to send reply", "chat", chatID, "error", err)
	}
}
