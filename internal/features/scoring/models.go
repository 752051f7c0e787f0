// Package scoring пересчитывает очки участников пула по завершённым матчам.
// Пересчёт полный, а не инкрементальный: повторный запуск на тех же данных
// записывает те же суммы.
package scoring

import "time"

// PointsRecord — сумма очков участника в пуле.
type PointsRecord struct {
	PoolID    string    `db:"pool_id" json:"-"`
	UserID    string    `db:"user_id" json:"userId"`
	Points    int       `db:"points" json:"points"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RecomputeResult — итоги пересчёта.
type RecomputeResult struct {
	Updated        int `json:"updated"`        // Записано строк очков
	Members        int `json:"members"`        // Участников в пуле
	MatchesCounted int `json:"matchesCounted"` // Завершённых матчей учтено
}
