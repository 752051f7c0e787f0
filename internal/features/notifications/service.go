// Package notifications — service.go: fire-and-forget приёмник уведомлений.
package notifications

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Store сохраняет уведомления.
type Store interface {
	Insert(ctx context.Context, n *Notification) error
}

// Relay пересылает текст уведомления во внешний канал.
type Relay interface {
	Send(ctx context.Context, text string) error
}

// Service принимает уведомления от движков.
type Service struct {
	store Store
	relay Relay // nil — пересылка выключена
}

// NewService создаёт сервис уведомлений. relay может быть nil.
func NewService(store Store, relay Relay) *Service {
	return &Service{store: store, relay: relay}
}

// Notify сохраняет уведомление и пересылает его в relay.
// Ошибки только логируются: вызывающий код не должен от них зависеть.
func (s *Service) Notify(ctx context.Context, n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	entry := log.WithFields(log.Fields{
		"user_id": n.UserID,
		"kind":    n.Kind,
	})

	if err := s.store.Insert(ctx, &n); err != nil {
		entry.WithError(err).Warn("Не удалось сохранить уведомление")
	}

	if s.relay == nil {
		return
	}
	if err := s.relay.Send(ctx, formatRelayText(n)); err != nil {
		entry.WithError(err).Debug("Не удалось переслать уведомление")
	}
}

func formatRelayText(n Notification) string {
	text := n.Title
	if n.Body != "" {
		text += "\n" + n.Body
	}
	return text + "\nuser: " + n.UserID
}

// Noop — приёмник, который ничего не делает. Для тестов и запуска без БД.
type Noop struct{}

// Notify ничего не делает.
func (Noop) Notify(context.Context, Notification) {}
