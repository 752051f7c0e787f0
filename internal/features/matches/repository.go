// Package matches — repository.go выполняет запросы к таблицам matches и predictions.
package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/bolao/internal/db/postgres"
)

// Repository работает с матчами и прогнозами.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий матчей.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

const matchColumns = `id, pool_id, home_team, away_team, start_time, status, home_score, away_score`

// ListScheduledBetween возвращает запланированные матчи с from < start_time <= to.
func (r *Repository) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status = 'scheduled' AND start_time > $1 AND start_time <= $2
		ORDER BY start_time, id
	`
	return r.queryMatches(ctx, query, from, to)
}

// ListFinishedByPool возвращает матчи пула, у которых внесены оба счёта.
func (r *Repository) ListFinishedByPool(ctx context.Context, poolID string) ([]*Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE pool_id = $1 AND home_score IS NOT NULL AND away_score IS NOT NULL
		ORDER BY start_time, id
	`
	return r.queryMatches(ctx, query, poolID)
}

func (r *Repository) queryMatches(ctx context.Context, query string, args ...any) ([]*Match, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса матчей: %w", err)
	}
	defer rows.Close()

	var out []*Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.ID, &m.PoolID, &m.HomeTeam, &m.AwayTeam,
			&m.StartTime, &m.Status, &m.HomeScore, &m.AwayScore,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования матча: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения матчей: %w", err)
	}
	return out, nil
}

// ListActivePredictions возвращает active-прогнозы по матчам matchIDs
// только для пользователей userIDs.
func (r *Repository) ListActivePredictions(ctx context.Context, matchIDs, userIDs []string) ([]*Prediction, error) {
	if len(matchIDs) == 0 || len(userIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, match_id, user_id, home_pred, away_pred, status, outcome, source, created_at
		FROM predictions
		WHERE status = 'active' AND match_id = ANY($1) AND user_id = ANY($2)
		ORDER BY match_id, user_id
	`
	rows, err := r.db.Query(ctx, query, matchIDs, userIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса прогнозов: %w", err)
	}
	defer rows.Close()

	var out []*Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(
			&p.ID, &p.MatchID, &p.UserID, &p.HomePred, &p.AwayPred,
			&p.Status, &p.Outcome, &p.Source, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования прогноза: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения прогнозов: %w", err)
	}
	return out, nil
}

// InsertPredictions массово вставляет прогнозы одним батчем.
// Если у пользователя на матч уже есть active-прогноз (его мог вставить
// параллельный запуск), строка пропускается: ON CONFLICT по частичному
// уникальному индексу predictions_one_active.
//
// Возвращает прогнозы, которые реально были вставлены.
func (r *Repository) InsertPredictions(ctx context.Context, preds []*Prediction) ([]*Prediction, error) {
	if len(preds) == 0 {
		return nil, nil
	}
	query := `
		INSERT INTO predictions (id, match_id, user_id, home_pred, away_pred, status, outcome, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id, user_id) WHERE status = 'active' DO NOTHING
		RETURNING created_at
	`

	batch := &pgx.Batch{}
	for _, p := range preds {
		batch.Queue(query, p.ID, p.MatchID, p.UserID, p.HomePred, p.AwayPred, p.Status, p.Outcome, p.Source)
	}

	var inserted []*Prediction
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for _, p := range preds {
			var createdAt time.Time
			err := results.QueryRow().Scan(&createdAt)
			if errors.Is(err, pgx.ErrNoRows) {
				// Конфликт — прогноз уже есть
				continue
			}
			if err != nil {
				results.Close()
				return fmt.Errorf("ошибка вставки прогноза (match=%s, user=%s): %w", p.MatchID, p.UserID, err)
			}
			p.CreatedAt = createdAt
			inserted = append(inserted, p)
		}
		return results.Close()
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}
