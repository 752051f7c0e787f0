// Package boosters управляет бустерами: каталогом, покупками (леджер),
// расходом (usages) и активациями с ограниченным сроком.
// models.go описывает структуры для этих таблиц.
package boosters

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// Запасной счёт автопрогноза, если в каталоге не задан свой.
const (
	FallbackPredictionHome = 2
	FallbackPredictionAway = 0
)

// CatalogEntry — справочная запись каталога. Только чтение.
type CatalogEntry struct {
	ID                  string          `db:"id"`
	Name                string          `db:"name"`
	DefaultDurationDays int             `db:"default_duration_days"` // >= 1
	Metadata            json.RawMessage `db:"metadata"`              // Свободный JSON
}

// DefaultPrediction возвращает счёт по умолчанию из metadata:
//
//	{"default_prediction": {"home": 2, "away": 0}}
//
// Если ключей нет или они не числа — запасной 2:0.
func (c *CatalogEntry) DefaultPrediction() (home, away int) {
	if c == nil || len(c.Metadata) == 0 {
		return FallbackPredictionHome, FallbackPredictionAway
	}
	h := gjson.GetBytes(c.Metadata, "default_prediction.home")
	a := gjson.GetBytes(c.Metadata, "default_prediction.away")
	if h.Type != gjson.Number || a.Type != gjson.Number || h.Int() < 0 || a.Int() < 0 {
		return FallbackPredictionHome, FallbackPredictionAway
	}
	return int(h.Int()), int(a.Int())
}

// DisplayName — имя для уведомлений: name, metadata.title или ID.
func (c *CatalogEntry) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	if t := gjson.GetBytes(c.Metadata, "title"); t.Type == gjson.String && t.String() != "" {
		return t.String()
	}
	return c.ID
}

// Источники записи леджера покупок
const (
	PurchaseSourcePurchase = "purchase" // Оплата через платёжный шлюз
	PurchaseSourceRefund   = "refund"   // Возврат просроченного pending-расхода
)

// Purchase — строка леджера покупок. Только добавляется, никогда не меняется.
type Purchase struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	BoosterID string    `db:"booster"`
	Amount    int64     `db:"amount"` // Может быть отрицательным
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

// UsageStatus — статус строки расхода.
//
// Статусы зависят от того, кто создал строку:
//   - активация пользователем пишет active
//   - автопрогноз пишет consumed
//   - отложенный расход пишет pending, и только его видит чистильщик
//
// Любая строка занимает единицу инвентаря, в том числе refunded и expired.
// Возврат делается отдельной строкой леджера покупок.
type UsageStatus string

const (
	UsagePending  UsageStatus = "pending"
	UsageActive   UsageStatus = "active"
	UsageConsumed UsageStatus = "consumed"
	UsageExpired  UsageStatus = "expired"
	UsageRefunded UsageStatus = "refunded"
)

// CountsAgainstInventory — занимает ли строка единицу инвентаря.
func (s UsageStatus) CountsAgainstInventory() bool {
	switch s {
	case UsagePending, UsageActive, UsageConsumed, UsageExpired, UsageRefunded:
		return true
	}
	return false
}

// LockKey — ключ advisory-блокировки на остаток (user, booster).
func LockKey(userID, boosterID string) string {
	return userID + ":" + boosterID
}

// Usage — один факт расхода бустера.
type Usage struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	BoosterID string      `db:"booster"`
	PoolID    *string     `db:"pool_id"`
	MatchID   *string     `db:"match_id"`
	Status    UsageStatus `db:"status"`
	ExpiresAt *time.Time  `db:"expires_at"`
	CreatedAt time.Time   `db:"created_at"`
}

// Область действия активации
const (
	ScopeGlobal = "global"
	ScopeMatch  = "match"
)

// Статусы активации
const (
	ActivationActive   = "active"
	ActivationInactive = "inactive"
)

// Activation — окно времени, в котором бустер действует.
// PoolID == nil — глобальная активация (на все пулы пользователя).
type Activation struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	BoosterID string     `db:"booster_id"`
	PoolID    *string    `db:"pool_id"`
	Scope     string     `db:"scope"`
	Status    string     `db:"status"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// AppliesTo — активация действует в момент now для матча пула poolID:
// не истекла (или бессрочна) и либо глобальная, либо привязана к этому пулу.
func (a *Activation) AppliesTo(poolID string, now time.Time) bool {
	if a.Status != ActivationActive {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return a.PoolID == nil || *a.PoolID == poolID
}

// InventoryItem — остаток бустера у пользователя.
type InventoryItem struct {
	BoosterID string `json:"boosterId"`
	Purchased int64  `json:"purchased"`
	Used      int64  `json:"used"`
	Available int64  `json:"available"`
}

// ActivationResult — результат активации.
// ExpiresAt == nil — активация бессрочная.
type ActivationResult struct {
	ActivationID string     `json:"activationId"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	DurationDays int        `json:"durationDays"`
	Extended     bool       `json:"extended"`
}
