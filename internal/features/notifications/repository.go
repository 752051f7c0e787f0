// Package notifications — repository.go пишет в таблицу notifications.
package notifications

import (
	"context"
	"fmt"

	"serotonyl.ru/bolao/internal/db/postgres"
)

// Repository сохраняет уведомления.
type Repository struct {
	db postgres.DB
}

// NewRepository создаёт репозиторий уведомлений.
func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// Insert сохраняет уведомление.
func (r *Repository) Insert(ctx context.Context, n *Notification) error {
	payload := n.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, body, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.UserID, n.Kind, n.Title, n.Body, payload)
	if err != nil {
		return fmt.Errorf("ошибка сохранения уведомления: %w", err)
	}
	return nil
}
