package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"moonbags-buybot/agent/internal/alerts"
	"moonbags-buybot/shared/env"
	"moonbags-buybot/shared/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// tariffKeyboard renders one button per purchasable boost duration.
func (b *Bot) tariffKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, t := range b.cfg.Boost.Tariffs {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s - %.0f SUI", t.Label, t.PriceSUI), "boost:"+t.Label))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// handleBoostCommand opens the tariff picker. The token comes from an
// explicit /boost <coin type> argument, or from the group's saved config.
func (b *Bot) handleBoostCommand(chatID int64, arg string) {
	var token, symbol string
	if arg = strings.TrimSpace(arg); arg != "" {
		if !utils.ValidateCoinType(arg) {
			b.reply(chatID, "That does not look like a Sui coin type. Usage: /boost `0x...::module::TYPE`")
			return
		}
		token = arg
		symbol = utils.ShortenAddress(arg, 6)
	} else {
		saved, err := b.groups.Get(chatID)
		if err != nil {
			b.reply(chatID, "This group has no token configured yet. Run /start first, or pass one: /boost `0x...::module::TYPE`")
			return
		}
		token = saved.TokenAddress
		symbol = saved.TokenSymbol
	}

	sess := b.sessions.GetOrCreate(chatID)
	sess.Order = &BoostOrder{TokenAddress: token}
	sess.State = stateIdle

	kb := b.tariffKeyboard()
	b.replyWithKeyboard(chatID, fmt.Sprintf(
		"🚀 *Boost %s on the trending channel!*\nBoosted tokens skip the big-buy threshold and rank first on the leaderboard.\nPick a duration:",
		symbol), &kb)
}

// handleBoostCallback locks in a tariff and asks for the payment digest.
func (b *Bot) handleBoostCallback(chatID int64, data string) {
	label := strings.TrimPrefix(data, "boost:")
	tariff, ok := b.cfg.TariffByLabel(label)
	if !ok {
		b.log.Warn("Unknown boost tariff picked", "label", label)
		return
	}

	sess := b.sessions.GetOrCreate(chatID)
	if sess.Order == nil {
		b.reply(chatID, "Boost order expired, run /boost again.")
		return
	}
	sess.Order.Tariff = tariff
	sess.State = stateAwaitDigest

	b.reply(chatID, fmt.Sprintf(
		"Send *%.0f SUI* to:\n`%s`\n\nThen reply with the transaction digest (or /confirm <digest>). /cancel aborts.",
		tariff.PriceSUI, env.BoostWallet))
}

// handleDigestInput consumes the payment digest while a boost order waits.
func (b *Bot) handleDigestInput(ctx context.Context, chatID int64, text string, sess *Session) {
	digest := strings.TrimSpace(strings.TrimPrefix(text, "/confirm"))
	digest = strings.TrimSpace(digest)
	if digest == "" {
		b.reply(chatID, "Please send the transaction digest of your payment.")
		return
	}
	if sess.Order == nil || sess.Order.Tariff.Seconds == 0 {
		b.reply(chatID, "No boost order in progress, run /boost first.")
		return
	}

	reply := b.redeemBoost(ctx, chatID, sess.Order, digest)
	b.reply(chatID, reply)
}

// redeemBoost verifies the payment on chain and activates the boost. Each
// digest can be redeemed once; verification failures leave the order open so
// the user can resend a corrected digest.
func (b *Bot) redeemBoost(ctx context.Context, chatID int64, order *BoostOrder, digest string) string {
	used, err := b.boosts.HasPayment(digest)
	if err != nil {
		b.log.Error("Payment ledger lookup failed", "digest", digest, "error", err)
		return "Something went wrong checking the payment, please try again."
	}
	if used {
		return "⚠️ That transaction digest has already been used for a boost."
	}

	ok, err := b.verifier.VerifyPayment(ctx, digest, order.Tariff.PriceSUI, env.BoostWallet)
	if err != nil {
		b.log.Error("Payment verification failed", "digest", digest, "error", err)
		return "Could not verify the transaction right now, please try again in a moment."
	}
	if !ok {
		return fmt.Sprintf(
			"❌ Payment not confirmed. Make sure the transaction succeeded and sent at least %.0f SUI to the boost wallet, then resend the digest.",
			order.Tariff.PriceSUI)
	}

	duration := time.Duration(order.Tariff.Seconds) * time.Second
	expiresAt := time.Now().Add(duration)
	if err := b.boosts.Activate(order.TokenAddress, expiresAt); err != nil {
		b.log.Error("Failed to activate boost", "token", order.TokenAddress, "error", err)
		return "Payment verified but activation failed, please contact support with your digest."
	}
	if err := b.boosts.RecordPayment(digest, order.TokenAddress, order.Tariff.PriceSUI); err != nil {
		b.log.Error("Failed to record boost payment", "digest", digest, "error", err)
	}

	symbol := utils.ShortenAddress(order.TokenAddress, 6)
	if saved, err := b.groups.Get(chatID); err == nil && saved.TokenSymbol != "" {
		symbol = saved.TokenSymbol
	}
	if err := b.announce(alerts.FormatBoostActivated(symbol, order.TokenAddress, duration)); err != nil {
		b.log.Error("Failed to announce boost on trending channel", "token", order.TokenAddress, "error", err)
	}

	b.sessions.Delete(chatID)
	b.log.Info("Boost activated", "token", order.TokenAddress, "duration", duration.String(), "digest", digest)
	return fmt.Sprintf("✅ Boost active for %s! Your token is now featured on the trending channel.", utils.HumanDuration(duration))
}
