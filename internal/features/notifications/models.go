// Package notifications хранит уведомления пользователей и пересылает их
// в служебный Telegram-чат. Доставка best-effort: ошибка уведомления
// никогда не откатывает операцию, которая его породила.
package notifications

import "time"

// Виды уведомлений
const (
	KindBoosterActivated = "booster_activated" // Пользователь активировал бустер
	KindBoosterRefunded  = "booster_refunded"  // Просроченный pending-расход возвращён
	KindAutoPick         = "auto_pick"         // Автопрогноз подставил прогноз
)

// Notification — одно уведомление пользователю.
type Notification struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Kind      string         `db:"kind"`
	Title     string         `db:"title"`
	Body      string         `db:"body"`
	Payload   map[string]any `db:"payload"` // JSONB
	CreatedAt time.Time      `db:"created_at"`
}
