// Package members — repository.go отвечает за чтение таблицы pool_members.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package members

import (
	"context"
	"fmt"

	"serotonyl.ru/bolao/internal/db/postgres"
)

type Repository struct {
	db postgres.DB
}

func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// ListByPool возвращает всех участников пула, упорядоченных по user_id.
// Пустой пул — пустой срез без ошибки.
func (r *Repository) ListByPool(ctx context.Context, poolID string) ([]*PoolMember, error) {
	query := `
		SELECT pool_id, user_id, joined_at
		FROM pool_members
		WHERE pool_id = $1
		ORDER BY user_id
	`
	rows, err := r.db.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса участников пула: %w", err)
	}
	defer rows.Close()

	var out []*PoolMember
	for rows.Next() {
		var m PoolMember
		if err := rows.Scan(&m.PoolID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}

	return out, nil
}

// IsMember проверяет, состоит ли пользователь в пуле.
func (r *Repository) IsMember(ctx context.Context, poolID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM pool_members WHERE pool_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, poolID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки членства: %w", err)
	}
	return exists, nil
}
