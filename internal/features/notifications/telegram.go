package notifications

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// TelegramRelay отправляет уведомления в служебный чат.
type TelegramRelay struct {
	bot    *telego.Bot
	chatID int64
}

// NewTelegramRelay создаёт клиента Bot API. Токен проверяется сразу.
func NewTelegramRelay(token string, chatID int64) (*TelegramRelay, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-клиента: %w", err)
	}
	log.WithField("chat_id", chatID).Info("Пересылка уведомлений в Telegram включена")
	return &TelegramRelay{bot: bot, chatID: chatID}, nil
}

// Send отправляет текст в чат.
func (r *TelegramRelay) Send(ctx context.Context, text string) error {
	if _, err := r.bot.SendMessage(ctx, tu.Message(tu.ID(r.chatID), text)); err != nil {
		return fmt.Errorf("ошибка отправки в Telegram: %w", err)
	}
	return nil
}
