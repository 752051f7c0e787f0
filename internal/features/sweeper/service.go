// Package sweeper возвращает просроченные pending-расходы бустеров.
//
// Каждая строка переводится pending → refunded условным UPDATE; кто первым
// сменил статус, тот и пишет возврат в леджер. Параллельные проходы
// (повтор планировщика) видят 0 затронутых строк и пропускают их.
//
// Строка refunded или expired по-прежнему занимает единицу инвентаря;
// единицу возвращает только строка source='refund' в леджере покупок.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/features/boosters"
	"serotonyl.ru/bolao/internal/features/notifications"
	"serotonyl.ru/bolao/internal/metrics"
)

// DefaultBatchSize — сколько строк берётся за один проход.
// Остаток подхватит следующий запуск.
const DefaultBatchSize = 1000

// Store — операции леджера, нужные чистильщику (реализует boosters.Repository).
type Store interface {
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*boosters.Usage, error)
	TransitionUsage(ctx context.Context, id string, from, to boosters.UsageStatus) (bool, error)
	InsertPurchase(ctx context.Context, p *boosters.Purchase) error
}

// Notifier — приёмник уведомлений.
type Notifier interface {
	Notify(ctx context.Context, n notifications.Notification)
}

// SweepResult — итоги одного прохода.
type SweepResult struct {
	Processed int `json:"processed"` // Найдено просроченных pending на момент скана
	Refunded  int `json:"refunded"`  // Возврат записан в леджер
	Expired   int `json:"expired"`   // Возврат не записался, строка закрыта как expired
	Skipped   int `json:"skipped"`   // Строку обработал другой проход или она упала
}

// Service — чистильщик просроченных расходов.
type Service struct {
	store     Store
	notifier  Notifier
	clock     common.Clock
	batchSize int
}

// NewService создаёт чистильщика.
func NewService(store Store, notifier Notifier, clock common.Clock) *Service {
	return &Service{
		store:     store,
		notifier:  notifier,
		clock:     clock,
		batchSize: DefaultBatchSize,
	}
}

// SweepExpired обрабатывает pending-расходы с expires_at < now.
//
// Ошибка чтения списка прерывает проход целиком (строки остаются как были).
// Ошибка по отдельной строке только логируется.
func (s *Service) SweepExpired(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	defer func() { metrics.ObserveJob("sweep_expired", time.Since(start)) }()

	now := s.clock.Now()
	usages, err := s.store.ListExpiredPending(ctx, now, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("ошибка скана просроченных расходов: %w", err)
	}

	res := &SweepResult{Processed: len(usages)}
	for _, u := range usages {
		switch s.sweepOne(ctx, u) {
		case outcomeRefunded:
			res.Refunded++
		case outcomeExpired:
			res.Expired++
		default:
			res.Skipped++
		}
	}

	metrics.RecordSweep(res.Refunded, res.Expired, res.Skipped)
	if res.Processed > 0 {
		log.WithFields(log.Fields{
			"processed": res.Processed,
			"refunded":  res.Refunded,
			"expired":   res.Expired,
			"skipped":   res.Skipped,
		}).Info("Просроченные расходы обработаны")
	}
	return res, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeRefunded
	outcomeExpired
)

func (s *Service) sweepOne(ctx context.Context, u *boosters.Usage) outcome {
	entry := log.WithFields(log.Fields{
		"usage_id": u.ID,
		"user_id":  u.UserID,
		"booster":  u.BoosterID,
	})

	won, err := s.store.TransitionUsage(ctx, u.ID, boosters.UsagePending, boosters.UsageRefunded)
	if err != nil {
		entry.WithError(err).Warn("Не удалось сменить статус расхода")
		return outcomeSkipped
	}
	if !won {
		// Строку уже забрал параллельный проход
		return outcomeSkipped
	}

	purchase := &boosters.Purchase{
		ID:        uuid.NewString(),
		UserID:    u.UserID,
		BoosterID: u.BoosterID,
		Amount:    1,
		Source:    boosters.PurchaseSourceRefund,
	}
	if err := s.store.InsertPurchase(ctx, purchase); err != nil {
		entry.WithError(err).Warn("Возврат не записан, закрываем расход как expired")
		ok, cerr := s.store.TransitionUsage(ctx, u.ID, boosters.UsageRefunded, boosters.UsageExpired)
		if cerr != nil || !ok {
			entry.WithError(cerr).Error("Компенсация не удалась, расход остался refunded без возврата")
			return outcomeSkipped
		}
		return outcomeExpired
	}

	s.notifier.Notify(ctx, notifications.Notification{
		UserID: u.UserID,
		Kind:   notifications.KindBoosterRefunded,
		Title:  "Бустер возвращён",
		Body:   "Срок неиспользованного бустера истёк, единица вернулась в инвентарь",
		Payload: map[string]any{
			"boosterId": u.BoosterID,
			"usageId":   u.ID,
		},
	})
	return outcomeRefunded
}
