package notifications

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"moonbags-buybot/shared/env"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

var bot *tgbotapi.BotAPI
var isInitialized bool = false
var telegramLimiter *rate.Limiter

func InitTelegramBot() error {
	if isInitialized && bot != nil {
		log.Println("INFO: Telegram bot already initialized.")
		return nil
	}

	isInitialized = false
	bot = nil
	telegramLimiter = nil

	botToken := env.TelegramBotToken
	if botToken == "" {
		return fmt.Errorf("critical error: BOT_TOKEN missing from env configuration")
	}
	if env.TrendingChannelID == 0 {
		return fmt.Errorf("critical error: TRENDING_CHANNEL_ID missing or invalid in env configuration")
	}

	log.Println("Initializing Telegram bot API...")
	var err error
	bot, err = tgbotapi.NewBotAPI(botToken)
	if err != nil {
		bot = nil
		return fmt.Errorf("failed to initialize Telegram bot API: %w", err)
	}

	log.Println("Verifying bot token with Telegram API (GetMe)...")
	userInfo, err := bot.GetMe()
	if err != nil {
		bot = nil
		return fmt.Errorf("failed to verify bot token with GetMe API call: %w", err)
	}

	isInitialized = true
	// Telegram allows ~30 msg/sec overall but only 20/min per group; one send
	// per second keeps the bot well clear of both while alerts fan out.
	telegramLimiter = rate.NewLimiter(rate.Limit(1), 3)
	log.Printf("Telegram bot initialized successfully for @%s", userInfo.UserName)

	return nil
}

func GetBotInstance() *tgbotapi.BotAPI {
	if !isInitialized || bot == nil {
		log.Println("WARN: GetBotInstance called but bot is not initialized or initialization failed.")
	}
	return bot
}

// SendSystemLogMessage mirrors a log line to the operators' chat, when one is
// configured. Failures here must never feed back into the logger.
func SendSystemLogMessage(message string) {
	if env.SystemLogChatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(env.SystemLogChatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, _ = sendWithRetry(msg, fmt.Sprintf("[SystemLog - ChatID: %d]", env.SystemLogChatID))
}

// SendChatMessage sends a Markdown text message to the given chat, with an
// optional inline keyboard.
func SendChatMessage(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	_, err := sendWithRetry(msg, fmt.Sprintf("[Text - ChatID: %d]", chatID))
	return err
}

// SendChatPhoto sends a stored photo (by Telegram file id) with a caption.
// Falls back to a plain text message when the photo send fails outright.
func SendChatPhoto(chatID int64, fileID, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := sendWithRetry(msg, fmt.Sprintf("[Photo - ChatID: %d]", chatID)); err != nil {
		log.Printf("INFO: Falling back to text message after photo send failure (chat %d).", chatID)
		return SendChatMessage(chatID, caption, keyboard)
	}
	return nil
}

// SendChatAnimation sends a stored GIF/animation (by Telegram file id) with a
// caption, falling back to text on failure like SendChatPhoto.
func SendChatAnimation(chatID int64, fileID, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewAnimation(chatID, tgbotapi.FileID(fileID))
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := sendWithRetry(msg, fmt.Sprintf("[Animation - ChatID: %d]", chatID)); err != nil {
		log.Printf("INFO: Falling back to text message after animation send failure (chat %d).", chatID)
		return SendChatMessage(chatID, caption, keyboard)
	}
	return nil
}

// SendTrendingMessage posts to the shared trending channel.
func SendTrendingMessage(text string) error {
	return SendChatMessage(env.TrendingChannelID, text, nil)
}

// PublishLeaderboard posts the leaderboard to the trending channel, unpins the
// previous board and pins the new message. Pin failures are logged but do not
// fail the publish; the board is already visible.
func PublishLeaderboard(text string) error {
	msg := tgbotapi.NewMessage(env.TrendingChannelID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	sent, err := sendWithRetry(msg, fmt.Sprintf("[Leaderboard - ChatID: %d]", env.TrendingChannelID))
	if err != nil {
		return err
	}

	if bot == nil {
		return nil
	}
	unpin := tgbotapi.UnpinAllChatMessagesConfig{ChatID: env.TrendingChannelID}
	if _, err := bot.Request(unpin); err != nil {
		log.Printf("WARN: Failed to unpin previous leaderboard in chat %d: %v", env.TrendingChannelID, err)
	}
	pin := tgbotapi.PinChatMessageConfig{
		ChatID:              env.TrendingChannelID,
		MessageID:           sent.MessageID,
		DisableNotification: true,
	}
	if _, err := bot.Request(pin); err != nil {
		log.Printf("WARN: Failed to pin leaderboard message %d in chat %d: %v", sent.MessageID, env.TrendingChannelID, err)
	}
	return nil
}

func sendWithRetry(c tgbotapi.Chattable, logCtx string) (tgbotapi.Message, error) {
	if telegramLimiter != nil {
		if err := telegramLimiter.Wait(context.Background()); err != nil {
			log.Printf("ERROR: Telegram rate limiter wait error %s: %v. Proceeding with send attempt...", logCtx, err)
		}
	} else {
		log.Printf("WARN: Telegram rate limiter not initialized! Sending without global limit check. %s", logCtx)
	}
	if bot == nil {
		return tgbotapi.Message{}, fmt.Errorf("telegram bot is not initialized")
	}

	maxRetries := 3
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		sent, err := bot.Send(c)
		if err == nil {
			return sent, nil
		}
		lastErr = err

		if tgErr, ok := err.(*tgbotapi.Error); ok {
			log.Printf("ERROR: Failed Telegram send (Attempt %d/%d): API Err %d - %s %s",
				i+1, maxRetries, tgErr.Code, tgErr.Message, logCtx)

			if tgErr.Code == 429 {
				retryAfter := tgErr.RetryAfter
				if retryAfter <= 0 {
					retryAfter = 1
				}
				log.Printf("INFO: Telegram API rate limit hit (429). Retrying after %d seconds... %s", retryAfter, logCtx)
				time.Sleep(time.Duration(retryAfter) * time.Second)
				continue
			}
			// 4xx other than 429 will not succeed on retry.
			if tgErr.Code >= 400 && tgErr.Code < 500 {
				return tgbotapi.Message{}, lastErr
			}
		} else {
			log.Printf("ERROR: Failed Telegram send (Attempt %d/%d): General Error %v %s",
				i+1, maxRetries, err, logCtx)
		}

		if i < maxRetries-1 {
			waitDuration := time.Duration(math.Pow(2, float64(i))) * time.Second
			time.Sleep(waitDuration)
		}
	}
	log.Printf("ERROR: Telegram message failed to send after %d retries. Last Error: %v. %s", maxRetries, lastErr, logCtx)
	return tgbotapi.Message{}, lastErr
}
