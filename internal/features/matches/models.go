// Package matches описывает матчи пула и прогнозы участников.
// models.go содержит структуры таблиц matches и predictions.
package matches

import (
	"time"

	"serotonyl.ru/bolao/internal/common"
)

// Статусы матча
const (
	MatchStatusScheduled = "scheduled" // Ещё не начался
	MatchStatusLive      = "live"      // Идёт
	MatchStatusFinished  = "finished"  // Завершён
)

// Match — матч внутри пула.
// HomeScore/AwayScore равны nil, пока результат не внесён.
type Match struct {
	ID        string    `db:"id"`
	PoolID    string    `db:"pool_id"`
	HomeTeam  string    `db:"home_team"`
	AwayTeam  string    `db:"away_team"`
	StartTime time.Time `db:"start_time"`
	Status    string    `db:"status"`
	HomeScore *int      `db:"home_score"`
	AwayScore *int      `db:"away_score"`
}

// HasResult — оба счёта внесены, матч участвует в подсчёте очков.
func (m *Match) HasResult() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// Статусы прогноза
const (
	PredictionStatusActive         = "active"           // Действующий прогноз
	PredictionStatusRevertedByUndo = "reverted_by_undo" // Отменён бустером «переиграть»
)

// Источники прогноза
const (
	PredictionSourceManual   = "manual"    // Введён участником
	PredictionSourceAutoPick = "auto_pick" // Подставлен бустером автопрогноза
)

// Prediction — прогноз участника на матч.
// На пару (match_id, user_id) допускается не больше одного active-прогноза.
type Prediction struct {
	ID        string    `db:"id"`
	MatchID   string    `db:"match_id"`
	UserID    string    `db:"user_id"`
	HomePred  int       `db:"home_pred"`
	AwayPred  int       `db:"away_pred"`
	Status    string    `db:"status"`
	Outcome   int       `db:"outcome"` // -1, 0, 1 — см. common.Outcome
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

// NewAutoPick создаёт прогноз автопрогноза с вычисленным исходом.
func NewAutoPick(matchID, userID string, home, away int) *Prediction {
	return &Prediction{
		MatchID:  matchID,
		UserID:   userID,
		HomePred: home,
		AwayPred: away,
		Status:   PredictionStatusActive,
		Outcome:  common.Outcome(home, away),
		Source:   PredictionSourceAutoPick,
	}
}
