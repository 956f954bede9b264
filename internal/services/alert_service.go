package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AlertNotifier pushes operational security events to whoever is on call.
// Implementations must be safe to call from request handling; failures are
// logged, never propagated.
type AlertNotifier interface {
	TokenReuseDetected(userID int64, tokenID string)
	CleanupCompleted(deletedCount int64)
}

type telegramAlertService struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramAlertService connects the alert bot. Returns an error if the
// token is rejected by the Telegram API.
func NewTelegramAlertService(botToken string, chatID int64) (AlertNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &telegramAlertService{bot: bot, chatID: chatID}, nil
}

func (t *telegramAlertService) TokenReuseDetected(userID int64, tokenID string) {
	t.send(fmt.Sprintf("⚠️ Refresh token reuse detected: user_id=%d token_id=%s, rotation chain revoked", userID, tokenID))
}

func (t *telegramAlertService) CleanupCompleted(deletedCount int64) {
	t.send(fmt.Sprintf("🧹 Refresh token cleanup: removed %d stale records", deletedCount))
}

func (t *telegramAlertService) send(text string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][alert] send failed: %v", err)
	}
}
