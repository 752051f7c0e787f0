// Package scoring — service.go пересчитывает очки участников пула по
// завершённым матчам и отдаёт таблицу очков.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/features/matches"
	"serotonyl.ru/bolao/internal/metrics"
)

// Store — хранилище сумм очков.
type Store interface {
	UpsertPoints(ctx context.Context, records []*PointsRecord) error
	ListPoints(ctx context.Context, poolID string) ([]*PointsRecord, error)
}

// MatchStore — завершённые матчи и прогнозы (реализует matches.Repository).
type MatchStore interface {
	ListFinishedByPool(ctx context.Context, poolID string) ([]*matches.Match, error)
	ListActivePredictions(ctx context.Context, matchIDs, userIDs []string) ([]*matches.Prediction, error)
}

// MemberLister — участники пула (реализует members.Service).
type MemberLister interface {
	UserIDs(ctx context.Context, poolID string) ([]string, error)
	IsMember(ctx context.Context, poolID, userID string) (bool, error)
}

// Service пересчитывает очки пулов.
type Service struct {
	store   Store
	matches MatchStore
	members MemberLister
}

// NewService создаёт сервис подсчёта очков.
func NewService(store Store, matchStore MatchStore, members MemberLister) *Service {
	return &Service{store: store, matches: matchStore, members: members}
}

// Recompute полностью пересчитывает очки всех участников пула.
//
//  1. Нет участников — успех без записей
//  2. Нет завершённых матчей — всем участникам 0
//  3. Иначе сумма ScorePrediction по каждому завершённому матчу;
//     нет active-прогноза на матч — 0 за этот матч
func (s *Service) Recompute(ctx context.Context, poolID string) (*RecomputeResult, error) {
	start := time.Now()
	defer func() { metrics.ObserveJob("recompute", time.Since(start)) }()

	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return nil, fmt.Errorf("%w: poolId обязателен", common.ErrValidation)
	}

	res, err := s.recompute(ctx, poolID)
	if err != nil {
		metrics.RecordRecompute("error")
		return nil, err
	}
	metrics.RecordRecompute("ok")

	log.WithFields(log.Fields{
		"pool_id": poolID,
		"members": res.Members,
		"matches": res.MatchesCounted,
		"updated": res.Updated,
	}).Info("Очки пула пересчитаны")
	return res, nil
}

func (s *Service) recompute(ctx context.Context, poolID string) (*RecomputeResult, error) {
	memberIDs, err := s.members.UserIDs(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки участников: %w", err)
	}
	res := &RecomputeResult{Members: len(memberIDs)}
	if len(memberIDs) == 0 {
		return res, nil
	}
	sorted := append([]string(nil), memberIDs...)
	sort.Strings(sorted)

	finished, err := s.matches.ListFinishedByPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки матчей: %w", err)
	}
	res.MatchesCounted = len(finished)

	totals := make(map[string]int, len(sorted))
	if len(finished) > 0 {
		matchIDs := make([]string, 0, len(finished))
		for _, m := range finished {
			matchIDs = append(matchIDs, m.ID)
		}
		preds, err := s.matches.ListActivePredictions(ctx, matchIDs, sorted)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки прогнозов: %w", err)
		}
		totals = Totals(finished, preds, sorted)
	}

	records := make([]*PointsRecord, 0, len(sorted))
	for _, userID := range sorted {
		records = append(records, &PointsRecord{PoolID: poolID, UserID: userID, Points: totals[userID]})
	}
	if err := s.store.UpsertPoints(ctx, records); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	res.Updated = len(records)
	return res, nil
}

// Totals суммирует очки участников memberIDs по завершённым матчам.
// Прогнозы не из memberIDs и на матчи без результата игнорируются.
func Totals(finished []*matches.Match, preds []*matches.Prediction, memberIDs []string) map[string]int {
	type key struct{ match, user string }
	byKey := make(map[key]*matches.Prediction, len(preds))
	for _, p := range preds {
		if p.Status != matches.PredictionStatusActive {
			continue
		}
		byKey[key{p.MatchID, p.UserID}] = p
	}

	totals := make(map[string]int, len(memberIDs))
	for _, userID := range memberIDs {
		sum := 0
		for _, m := range finished {
			if !m.HasResult() {
				continue
			}
			p, ok := byKey[key{m.ID, userID}]
			if !ok {
				continue
			}
			sum += ScorePrediction(p.HomePred, p.AwayPred, *m.HomeScore, *m.AwayScore)
		}
		totals[userID] = sum
	}
	return totals
}

// Leaderboard возвращает сохранённые суммы пула.
// Таблицу видят только участники; для остальных пул «не найден».
func (s *Service) Leaderboard(ctx context.Context, poolID, viewerID string) ([]*PointsRecord, error) {
	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return nil, fmt.Errorf("%w: poolId обязателен", common.ErrValidation)
	}
	ok, err := s.members.IsMember(ctx, poolID, viewerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: пул %s", common.ErrNotFound, poolID)
	}
	return s.store.ListPoints(ctx, poolID)
}
