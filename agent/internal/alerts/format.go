// Package alerts renders buy alerts, trending posts and the leaderboard.
// Everything here is a pure function of its inputs so it can be tested
// without network access.
package alerts

import (
	"fmt"
	"strings"
	"time"

	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultEmojiStep = 5.0

// Alert is a rendered group alert ready for dispatch.
type Alert struct {
	Text      string
	Keyboard  *tgbotapi.InlineKeyboardMarkup
	MediaID   string
	MediaKind string // "photo" or "animation", empty for text-only
}

// LinkOptions carries the environment-level links woven into every alert.
type LinkOptions struct {
	ExplorerURL         string
	TrendingChannelName string
	VolBotLink          string
}

// EmojiCount maps a buy's USD value to the repeated-emoji intensity
// indicator: floor(usd/step) clamped to [1, 20].
func EmojiCount(usdValue, emojiStep float64) int {
	if emojiStep <= 0 {
		emojiStep = defaultEmojiStep
	}
	count := int(usdValue / emojiStep)
	if count < 1 {
		count = 1
	}
	if count > 20 {
		count = 20
	}
	return count
}

// AbbrevUSD renders a dollar value with a K/M suffix past a thousand.
func AbbrevUSD(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.2fK", v/1_000)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

// FormatBuyAlert renders the per-group buy alert.
func FormatBuyAlert(buy models.BuyRecord, info models.TokenInfo, grp models.GroupConfig, opts LinkOptions) Alert {
	symbol := info.Symbol
	if symbol == "" {
		symbol = grp.TokenSymbol
	}

	emojis := strings.Repeat(grp.Emoji, EmojiCount(buy.UsdValue, grp.EmojiStep))

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s Buy! %s\n\n", emojis, symbol, emojis)
	fmt.Fprintf(&b, "💰 Size $%.2f | %.2f %s\n", buy.UsdValue, buy.TokenAmount, symbol)
	fmt.Fprintf(&b, "👤 Buyer: [%s](%s/%s)\n",
		utils.ShortenAddress(buy.BuyerAddress, 6), opts.ExplorerURL, buy.TxDigest)
	fmt.Fprintf(&b, "🔼 MCap %s\n", AbbrevUSD(info.MarketCapUSD))
	fmt.Fprintf(&b, "📊 TVL/Liq %s\n", AbbrevUSD(info.LiquidityUSD))
	fmt.Fprintf(&b, "📈 Price $%.8f\n", info.PriceUSD)
	if info.SuiPriceUSD > 0 {
		fmt.Fprintf(&b, "💧 SUI Price: $%.2f\n", info.SuiPriceUSD)
	}

	if links := formatLinks(grp); links != "" {
		b.WriteString("\n" + links + "\n")
	}

	return Alert{
		Text:      b.String(),
		Keyboard:  buyAlertKeyboard(grp, opts),
		MediaID:   grp.MediaID,
		MediaKind: grp.MediaKind,
	}
}

// formatLinks builds the social link row from the set optional fields only.
func formatLinks(grp models.GroupConfig) string {
	var links []string
	if grp.Website != "" {
		links = append(links, fmt.Sprintf("[Website](%s)", grp.Website))
	}
	if grp.TelegramLink != "" {
		links = append(links, fmt.Sprintf("[Telegram](%s)", grp.TelegramLink))
	}
	if grp.TwitterLink != "" {
		links = append(links, fmt.Sprintf("[X](%s)", grp.TwitterLink))
	}
	return strings.Join(links, " | ")
}

func buyAlertKeyboard(grp models.GroupConfig, opts LinkOptions) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if grp.ChartLink != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Buy Now", grp.ChartLink),
		))
	}
	var footer []tgbotapi.InlineKeyboardButton
	if grp.ChartLink != "" {
		footer = append(footer, tgbotapi.NewInlineKeyboardButtonURL("Chart", grp.ChartLink))
	}
	if opts.VolBotLink != "" {
		footer = append(footer, tgbotapi.NewInlineKeyboardButtonURL("Vol Bot", opts.VolBotLink))
	}
	if opts.TrendingChannelName != "" {
		footer = append(footer, tgbotapi.NewInlineKeyboardButtonURL("Trending", "https://t.me/"+opts.TrendingChannelName))
	}
	if len(footer) > 0 {
		rows = append(rows, footer)
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// FormatTrendingAlert renders the big-buy post for the trending channel.
func FormatTrendingAlert(buy models.BuyRecord, info models.TokenInfo, opts LinkOptions) string {
	symbol := info.Symbol
	if symbol == "" {
		symbol = "TOKEN"
	}
	var b strings.Builder
	b.WriteString("🚀 BIG BUY ALERT\n\n")
	fmt.Fprintf(&b, "%s (%s)\n", symbol, utils.ShortenAddress(buy.TokenAddress, 6))
	fmt.Fprintf(&b, "Amount: $%.2f\n", buy.UsdValue)
	fmt.Fprintf(&b, "Buyer: %s\n", utils.ShortenAddress(buy.BuyerAddress, 6))
	fmt.Fprintf(&b, "Tx: %s/%s", opts.ExplorerURL, buy.TxDigest)
	return b.String()
}

// FormatBoostActivated renders the trending-channel announcement for a newly
// purchased boost.
func FormatBoostActivated(symbol, tokenAddress string, duration time.Duration) string {
	return fmt.Sprintf("🚀 BOOST ACTIVATED!\n%s (%s) for %s",
		symbol, utils.ShortenAddress(tokenAddress, 6), utils.HumanDuration(duration))
}

// BoardEntry is one ranked leaderboard line.
type BoardEntry struct {
	Symbol         string
	TokenAddress   string
	VolumeUSD      float64
	Boosted        bool
	BoostRemaining time.Duration
	PriceUSD       float64
	Change24hPct   float64
}

var rankEmojis = []string{"🥇", "🥈", "🥉", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// FormatLeaderboard renders the pinned trending board.
func FormatLeaderboard(entries []BoardEntry, updatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("🏆 MOONBAGS TRENDING LEADERBOARD 🏆\n\n")
	for i, e := range entries {
		if i >= len(rankEmojis) {
			break
		}
		boostText := ""
		if e.Boosted {
			boostText = fmt.Sprintf(" (🚀 Boosted, %s left)", utils.HumanDuration(e.BoostRemaining))
		}
		fmt.Fprintf(&b, "%s $%s%s\n", rankEmojis[i], e.Symbol, boostText)
		fmt.Fprintf(&b, "   Volume (30m): $%.2f\n", e.VolumeUSD)
		fmt.Fprintf(&b, "   Price: $%.6f\n", e.PriceUSD)
		fmt.Fprintf(&b, "   Change: %.2f%%\n\n", e.Change24hPct)
	}
	fmt.Fprintf(&b, "\nUpdated: %s", updatedAt.UTC().Format("15:04 UTC"))
	return b.String()
}
