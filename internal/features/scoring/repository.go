// Package scoring — repository.go пишет и читает таблицу points.
package scoring

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/bolao/internal/db/postgres"
)

// Repository работает с таблицей points.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий очков.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// UpsertPoints записывает суммы одним батчем в транзакции.
// Строка по (pool_id, user_id) заменяется целиком.
func (r *Repository) UpsertPoints(ctx context.Context, records []*PointsRecord) error {
	if len(records) == 0 {
		return nil
	}
	query := `
		INSERT INTO points (pool_id, user_id, points, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (pool_id, user_id)
		DO UPDATE SET points = EXCLUDED.points, updated_at = NOW()
	`
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query, rec.PoolID, rec.UserID, rec.Points)
	}

	return postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for _, rec := range records {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("ошибка записи очков (pool=%s, user=%s): %w", rec.PoolID, rec.UserID, err)
			}
		}
		return results.Close()
	})
}

// ListPoints возвращает таблицу пула: по убыванию очков, затем по user_id.
func (r *Repository) ListPoints(ctx context.Context, poolID string) ([]*PointsRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT pool_id, user_id, points, updated_at
		FROM points
		WHERE pool_id = $1
		ORDER BY points DESC, user_id
	`, poolID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения очков: %w", err)
	}
	defer rows.Close()

	var out []*PointsRecord
	for rows.Next() {
		var p PointsRecord
		if err := rows.Scan(&p.PoolID, &p.UserID, &p.Points, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования очков: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
