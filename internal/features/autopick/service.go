// Package autopick подставляет прогноз по умолчанию участникам с активным
// бустером автопрогноза, если до начала матча осталось меньше окна
// (по умолчанию 60 минут), а своего прогноза у них нет.
// Каждый подставленный прогноз тратит единицу бустера; участник без
// свободных единиц пропускается, остаток не уходит в минус.
//
// Повторный запуск в том же окне ничего не меняет: участники с active-прогнозом
// исключаются, а вставка идёт через ON CONFLICT DO NOTHING.
package autopick

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/features/boosters"
	"serotonyl.ru/bolao/internal/features/matches"
	"serotonyl.ru/bolao/internal/features/notifications"
	"serotonyl.ru/bolao/internal/metrics"
)

// DefaultWindow — за сколько до начала матча подставляется прогноз.
const DefaultWindow = 60 * time.Minute

// MatchStore — матчи и прогнозы (реализует matches.Repository).
type MatchStore interface {
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*matches.Match, error)
	ListActivePredictions(ctx context.Context, matchIDs, userIDs []string) ([]*matches.Prediction, error)
	InsertPredictions(ctx context.Context, preds []*matches.Prediction) ([]*matches.Prediction, error)
}

// BoosterStore — каталог, активации, остатки и расходы (реализует boosters.Repository).
type BoosterStore interface {
	CatalogEntry(ctx context.Context, boosterID string) (*boosters.CatalogEntry, error)
	ListActiveActivations(ctx context.Context, boosterID string, userIDs []string) ([]*boosters.Activation, error)
	Available(ctx context.Context, userID, boosterID string) (int64, error)
	ConsumeUsage(ctx context.Context, u *boosters.Usage) (bool, error)
}

// MemberLister — участники пула (реализует members.Service).
type MemberLister interface {
	UserIDs(ctx context.Context, poolID string) ([]string, error)
}

// Notifier — приёмник уведомлений.
type Notifier interface {
	Notify(ctx context.Context, n notifications.Notification)
}

// Options — настройки движка.
type Options struct {
	BoosterID string        // Бустер автопрогноза, по умолчанию "auto_pick"
	Window    time.Duration // Окно до начала матча
}

// RunResult — итоги одного запуска.
type RunResult struct {
	MatchesScanned     int `json:"matchesScanned"`
	PredictionsCreated int `json:"predictionsCreated"`
	UsagesRecorded     int `json:"usagesRecorded"`
}

// Service — движок автопрогноза.
type Service struct {
	matches  MatchStore
	boosters BoosterStore
	members  MemberLister
	notifier Notifier
	clock    common.Clock
	opts     Options
}

// NewService создаёт движок автопрогноза.
func NewService(
	matchStore MatchStore,
	boosterStore BoosterStore,
	members MemberLister,
	notifier Notifier,
	clock common.Clock,
	opts Options,
) *Service {
	if opts.BoosterID == "" {
		opts.BoosterID = "auto_pick"
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Service{
		matches:  matchStore,
		boosters: boosterStore,
		members:  members,
		notifier: notifier,
		clock:    clock,
		opts:     opts,
	}
}

// Run обрабатывает матчи с now < start_time <= now + window.
// Ошибка выборки матчей прерывает запуск; ошибки по отдельному матчу
// логируются, и запуск идёт дальше.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	defer func() { metrics.ObserveJob("auto_pick", time.Since(start)) }()

	now := s.clock.Now()
	list, err := s.matches.ListScheduledBetween(ctx, now, now.Add(s.opts.Window))
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки матчей: %w", err)
	}

	res := &RunResult{MatchesScanned: len(list)}
	if len(list) == 0 {
		return res, nil
	}

	home, away := s.defaultScore(ctx)

	for _, m := range list {
		created, recorded, err := s.processMatch(ctx, m, now, home, away)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"match_id": m.ID,
				"pool_id":  m.PoolID,
			}).Warn("Автопрогноз для матча пропущен")
			continue
		}
		res.PredictionsCreated += created
		res.UsagesRecorded += recorded
	}

	metrics.RecordAutoPick(res.PredictionsCreated)
	if res.PredictionsCreated > 0 {
		log.WithFields(log.Fields{
			"matches":     res.MatchesScanned,
			"predictions": res.PredictionsCreated,
			"usages":      res.UsagesRecorded,
		}).Info("Автопрогнозы подставлены")
	}
	return res, nil
}

// defaultScore берёт счёт из каталога; без записи в каталоге — 2:0.
func (s *Service) defaultScore(ctx context.Context) (int, int) {
	entry, err := s.boosters.CatalogEntry(ctx, s.opts.BoosterID)
	if err != nil {
		if !errors.Is(err, common.ErrCatalogMissing) {
			log.WithError(err).Warn("Каталог недоступен, используем счёт по умолчанию")
		}
		return boosters.FallbackPredictionHome, boosters.FallbackPredictionAway
	}
	return entry.DefaultPrediction()
}

// hasInventory — у участника есть свободная единица бустера.
// Ошибка чтения остатка исключает участника из этого запуска.
func (s *Service) hasInventory(ctx context.Context, userID string) bool {
	available, err := s.boosters.Available(ctx, userID, s.opts.BoosterID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось прочитать остаток автопрогноза")
		return false
	}
	return available > 0
}

// inWindow — повторная проверка окна для матча на случай расхождения часов
// между запросом и обработкой.
func (s *Service) inWindow(m *matches.Match, now time.Time) bool {
	return m.StartTime.After(now) && !now.Before(m.StartTime.Add(-s.opts.Window))
}

func (s *Service) processMatch(ctx context.Context, m *matches.Match, now time.Time, home, away int) (int, int, error) {
	if !s.inWindow(m, now) {
		return 0, 0, nil
	}

	memberIDs, err := s.members.UserIDs(ctx, m.PoolID)
	if err != nil {
		return 0, 0, fmt.Errorf("участники пула: %w", err)
	}
	if len(memberIDs) == 0 {
		return 0, 0, nil
	}

	activations, err := s.boosters.ListActiveActivations(ctx, s.opts.BoosterID, memberIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("активации: %w", err)
	}
	boosted := make(map[string]bool)
	for _, a := range activations {
		if a.AppliesTo(m.PoolID, now) {
			boosted[a.UserID] = true
		}
	}
	if len(boosted) == 0 {
		return 0, 0, nil
	}

	existing, err := s.matches.ListActivePredictions(ctx, []string{m.ID}, memberIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("существующие прогнозы: %w", err)
	}
	predicted := make(map[string]bool, len(existing))
	for _, p := range existing {
		predicted[p.UserID] = true
	}

	sorted := append([]string(nil), memberIDs...)
	sort.Strings(sorted)

	var preds []*matches.Prediction
	for _, userID := range sorted {
		if !boosted[userID] || predicted[userID] {
			continue
		}
		if !s.hasInventory(ctx, userID) {
			continue
		}
		p := matches.NewAutoPick(m.ID, userID, home, away)
		p.ID = uuid.NewString()
		preds = append(preds, p)
	}
	if len(preds) == 0 {
		return 0, 0, nil
	}

	inserted, err := s.matches.InsertPredictions(ctx, preds)
	if err != nil {
		return 0, 0, fmt.Errorf("вставка прогнозов: %w", err)
	}
	if len(inserted) == 0 {
		return 0, 0, nil
	}

	poolID := m.PoolID
	matchID := m.ID
	recorded := 0
	for _, p := range inserted {
		ok, err := s.boosters.ConsumeUsage(ctx, &boosters.Usage{
			ID:        uuid.NewString(),
			UserID:    p.UserID,
			BoosterID: s.opts.BoosterID,
			PoolID:    &poolID,
			MatchID:   &matchID,
			Status:    boosters.UsageConsumed,
		})
		fields := log.Fields{"match_id": m.ID, "user_id": p.UserID}
		switch {
		case err != nil:
			// Прогноз уже вставлен и остаётся; расход — только аудит
			log.WithError(err).WithFields(fields).Warn("Не удалось записать расход автопрогноза")
		case !ok:
			// Остаток ушёл параллельной активацией между проверкой и записью
			log.WithFields(fields).Warn("Расход автопрогноза не записан: единиц не осталось")
		default:
			recorded++
		}
	}

	for _, p := range inserted {
		s.notifier.Notify(ctx, notifications.Notification{
			UserID: p.UserID,
			Kind:   notifications.KindAutoPick,
			Title:  "Автопрогноз",
			Body:   fmt.Sprintf("%s — %s: %d:%d", m.HomeTeam, m.AwayTeam, p.HomePred, p.AwayPred),
			Payload: map[string]any{
				"matchId":      m.ID,
				"poolId":       m.PoolID,
				"predictionId": p.ID,
				"home":         p.HomePred,
				"away":         p.AwayPred,
			},
		})
	}

	return len(inserted), recorded, nil
}
