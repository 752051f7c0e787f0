// Package jobs управляет фоновыми задачами (cron).
// scheduler.go — встроенная замена внешнему планировщику: по расписанию
// вызывает чистильщик просроченных расходов и автопрогноз.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/features/autopick"
	"serotonyl.ru/bolao/internal/features/sweeper"
)

// Sweeper — то, что нужно планировщику от чистильщика.
type Sweeper interface {
	SweepExpired(ctx context.Context) (*sweeper.SweepResult, error)
}

// AutoPicker — то, что нужно планировщику от автопрогноза.
type AutoPicker interface {
	Run(ctx context.Context) (*autopick.RunResult, error)
}

// Specs — расписания задач в формате cron (5 полей).
type Specs struct {
	Sweep    string
	AutoPick string
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	autoPick AutoPicker
	specs    Specs
	loc      *time.Location
}

// NewScheduler создаёт планировщик в часовом поясе loc.
// Пересекающиеся запуски одной задачи пропускаются.
func NewScheduler(sw Sweeper, ap AutoPicker, specs Specs, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{
		cron:     c,
		sweeper:  sw,
		autoPick: ap,
		specs:    specs,
		loc:      loc,
	}
}

// Start регистрирует задачи и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.specs.Sweep, func() { s.runSweep(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание чистильщика %q: %w", s.specs.Sweep, err)
	}
	if _, err := s.cron.AddFunc(s.specs.AutoPick, func() { s.runAutoPick(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание автопрогноза %q: %w", s.specs.AutoPick, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"sweep":     s.specs.Sweep,
		"auto_pick": s.specs.AutoPick,
		"tz":        s.loc.String(),
	}).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт завершения текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) runSweep(ctx context.Context) {
	log.Debug("[CRON] Чистка просроченных расходов")
	res, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка чистки")
		return
	}
	if res.Processed > 0 {
		log.WithFields(log.Fields{
			"processed": res.Processed,
			"refunded":  res.Refunded,
		}).Info("[CRON] Чистка завершена")
	}
}

func (s *Scheduler) runAutoPick(ctx context.Context) {
	log.Debug("[CRON] Автопрогноз")
	res, err := s.autoPick.Run(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка автопрогноза")
		return
	}
	if res.PredictionsCreated > 0 {
		log.WithFields(log.Fields{
			"matches":     res.MatchesScanned,
			"predictions": res.PredictionsCreated,
		}).Info("[CRON] Автопрогноз завершён")
	}
}
