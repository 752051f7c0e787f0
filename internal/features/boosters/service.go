// Package boosters — service.go содержит бизнес-логику инвентаря и активации.
// Проверка остатка, продление или создание активации, запись расхода.
package boosters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/features/notifications"
	"serotonyl.ru/bolao/internal/metrics"
)

// Store — операции леджера, которые нужны сервису активации.
// Реализуется Repository, в тестах — хранилищем в памяти.
type Store interface {
	Atomically(ctx context.Context, lockKey string, fn func(Store) error) error
	CatalogEntry(ctx context.Context, boosterID string) (*CatalogEntry, error)
	Available(ctx context.Context, userID, boosterID string) (int64, error)
	Inventory(ctx context.Context, userID string) ([]*InventoryItem, error)
	ActiveGlobalActivation(ctx context.Context, userID, boosterID string) (*Activation, error)
	ExtendActivation(ctx context.Context, id string, expiresAt time.Time) error
	CreateActivation(ctx context.Context, a *Activation) error
	InsertUsage(ctx context.Context, u *Usage) error
}

// Notifier — приёмник уведомлений (best-effort).
type Notifier interface {
	Notify(ctx context.Context, n notifications.Notification)
}

// Service управляет инвентарём и активацией бустеров.
type Service struct {
	store       Store
	notifier    Notifier
	clock       common.Clock
	defaultDays int // Срок, если бустера нет в каталоге
}

// NewService создаёт сервис бустеров.
func NewService(store Store, notifier Notifier, clock common.Clock, defaultDays int) *Service {
	if defaultDays < 1 {
		defaultDays = 7
	}
	return &Service{
		store:       store,
		notifier:    notifier,
		clock:       clock,
		defaultDays: defaultDays,
	}
}

// Available возвращает свободный остаток бустера у пользователя.
func (s *Service) Available(ctx context.Context, userID, boosterID string) (int64, error) {
	return s.store.Available(ctx, userID, boosterID)
}

// Inventory возвращает остатки по всем бустерам пользователя.
func (s *Service) Inventory(ctx context.Context, userID string) ([]*InventoryItem, error) {
	if userID == "" {
		return nil, common.ErrValidation
	}
	return s.store.Inventory(ctx, userID)
}

// Activate тратит одну единицу бустера и открывает (или продлевает) окно действия.
//
// Алгоритм:
//  1. Под блокировкой (user, booster) считаем остаток; <= 0 — ErrNoInventory
//  2. Без poolID ищем действующую глобальную активацию и продлеваем её
//     на durationDays от текущего expires_at (сроки складываются);
//     истёкшую продлеваем от now, бессрочную оставляем бессрочной
//  3. Иначе создаём новую активацию; для poolID — всегда новую строку
//  4. Пишем расход со статусом active
//
// Повторный вызов клиента после сбоя сети потратит вторую единицу:
// идемпотентность здесь не гарантируется.
func (s *Service) Activate(ctx context.Context, userID, boosterID string, poolID *string) (*ActivationResult, error) {
	userID = strings.TrimSpace(userID)
	boosterID = strings.TrimSpace(boosterID)
	if userID == "" || boosterID == "" {
		return nil, fmt.Errorf("%w: boosterId обязателен", common.ErrValidation)
	}
	if poolID != nil && strings.TrimSpace(*poolID) == "" {
		poolID = nil
	}

	now := s.clock.Now()
	entry, durationDays, err := s.resolveDuration(ctx, boosterID)
	if err != nil {
		return nil, err
	}

	result := &ActivationResult{DurationDays: durationDays}
	lockKey := LockKey(userID, boosterID)

	err = s.store.Atomically(ctx, lockKey, func(tx Store) error {
		available, err := tx.Available(ctx, userID, boosterID)
		if err != nil {
			return err
		}
		if available <= 0 {
			return common.ErrNoInventory
		}

		if poolID == nil {
			existing, err := tx.ActiveGlobalActivation(ctx, userID, boosterID)
			if err != nil {
				return err
			}
			switch {
			case existing != nil && existing.ExpiresAt == nil:
				// Бессрочную активацию не укорачиваем: срок не трогаем
				result.ActivationID = existing.ID
				result.Extended = true
			case existing != nil:
				// Сроки складываются: от текущего конца окна, а не от now
				base := now
				if existing.ExpiresAt.After(now) {
					base = *existing.ExpiresAt
				}
				expiresAt := base.Add(common.Days(durationDays))
				if err := tx.ExtendActivation(ctx, existing.ID, expiresAt); err != nil {
					return fmt.Errorf("%w: %w", common.ErrPersistence, err)
				}
				result.ActivationID = existing.ID
				result.ExpiresAt = &expiresAt
				result.Extended = true
			}
		}

		if !result.Extended {
			expiresAt := now.Add(common.Days(durationDays))
			activation := &Activation{
				ID:        uuid.NewString(),
				UserID:    userID,
				BoosterID: boosterID,
				PoolID:    poolID,
				Scope:     ScopeGlobal,
				Status:    ActivationActive,
				ExpiresAt: &expiresAt,
			}
			if err := tx.CreateActivation(ctx, activation); err != nil {
				return fmt.Errorf("%w: %w", common.ErrPersistence, err)
			}
			result.ActivationID = activation.ID
			result.ExpiresAt = &expiresAt
		}

		usage := &Usage{
			ID:        uuid.NewString(),
			UserID:    userID,
			BoosterID: boosterID,
			PoolID:    poolID,
			Status:    UsageActive,
			ExpiresAt: result.ExpiresAt,
		}
		if err := tx.InsertUsage(ctx, usage); err != nil {
			return fmt.Errorf("%w: %w", common.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		metrics.RecordActivation(activationResultLabel(err))
		return nil, err
	}
	metrics.RecordActivation("ok")

	log.WithFields(log.Fields{
		"user_id":    userID,
		"booster":    boosterID,
		"pool_id":    poolID,
		"expires_at": result.ExpiresAt,
		"extended":   result.Extended,
	}).Info("Бустер активирован")

	s.notifier.Notify(ctx, notifications.Notification{
		UserID: userID,
		Kind:   notifications.KindBoosterActivated,
		Title:  "Бустер активирован",
		Body:   activationBody(displayName(entry, boosterID), durationDays, result.ExpiresAt == nil),
		Payload: map[string]any{
			"boosterId":    boosterID,
			"activationId": result.ActivationID,
			"expiresAt":    result.ExpiresAt,
			"extended":     result.Extended,
		},
	})

	return result, nil
}

// resolveDuration берёт срок из каталога. Неизвестный бустер не ошибка:
// используем срок по умолчанию и пишем предупреждение.
func (s *Service) resolveDuration(ctx context.Context, boosterID string) (*CatalogEntry, int, error) {
	entry, err := s.store.CatalogEntry(ctx, boosterID)
	if err != nil {
		if errors.Is(err, common.ErrCatalogMissing) {
			log.WithField("booster", boosterID).Warnf("Бустера нет в каталоге, срок по умолчанию %d", s.defaultDays)
			return nil, s.defaultDays, nil
		}
		return nil, 0, err
	}
	if entry.DefaultDurationDays < 1 {
		return entry, s.defaultDays, nil
	}
	return entry, entry.DefaultDurationDays, nil
}

func activationBody(name string, durationDays int, unlimited bool) string {
	if unlimited {
		return fmt.Sprintf("«%s» действует бессрочно", name)
	}
	return fmt.Sprintf("«%s» действует ещё %s", name, common.FormatDays(durationDays))
}

func displayName(entry *CatalogEntry, boosterID string) string {
	if entry == nil {
		return boosterID
	}
	return entry.DisplayName()
}

func activationResultLabel(err error) string {
	switch {
	case errors.Is(err, common.ErrNoInventory):
		return "no_inventory"
	case errors.Is(err, common.ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}
