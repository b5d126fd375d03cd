package services

import (
	"moonbags-buybot/agent/internal/alerts"
	"moonbags-buybot/shared/notifications"
)

// TelegramSender is the production AlertSender, backed by the rate-limited
// notifications layer.
type TelegramSender struct{}

func NewTelegramSender() *TelegramSender {
	return &TelegramSender{}
}

func (s *TelegramSender) SendGroupAlert(chatID int64, a alerts.Alert) error {
	switch {
	case a.MediaID != "" && a.MediaKind == "animation":
		return notifications.SendChatAnimation(chatID, a.MediaID, a.Text, a.Keyboard)
	case a.MediaID != "":
		return notifications.SendChatPhoto(chatID, a.MediaID, a.Text, a.Keyboard)
	default:
		return notifications.SendChatMessage(chatID, a.Text, a.Keyboard)
	}
}

func (s *TelegramSender) SendTrending(text string) error {
	return notifications.SendTrendingMessage(text)
}

func (s *TelegramSender) PublishLeaderboard(text string) error {
	return notifications.PublishLeaderboard(text)
}
