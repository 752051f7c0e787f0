// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики
// и собирает из них HTTP-сервер и планировщик.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/config"
	"serotonyl.ru/bolao/internal/db/postgres"
	"serotonyl.ru/bolao/internal/features/autopick"
	"serotonyl.ru/bolao/internal/features/boosters"
	"serotonyl.ru/bolao/internal/features/matches"
	"serotonyl.ru/bolao/internal/features/members"
	"serotonyl.ru/bolao/internal/features/notifications"
	"serotonyl.ru/bolao/internal/features/scoring"
	"serotonyl.ru/bolao/internal/features/sweeper"
	"serotonyl.ru/bolao/internal/jobs"
	"serotonyl.ru/bolao/internal/server"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *server.Server
	Scheduler *jobs.Scheduler // nil, если SCHEDULER_ENABLED=false
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool, Migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	clock := common.SystemClock{}

	// === 2. Уведомления ===
	var relay notifications.Relay
	if cfg.TelegramEnabled() {
		tg, err := notifications.NewTelegramRelay(cfg.TelegramBotToken, cfg.TelegramNotifyChatID)
		if err != nil {
			// Пересылка необязательна: работаем без неё
			log.WithError(err).Warn("Telegram недоступен, уведомления только в БД")
		} else {
			relay = tg
		}
	}
	notifyService := notifications.NewService(notifications.NewRepository(pool), relay)

	// === 3. Репозитории ===
	boosterRepo := boosters.NewRepository(pool)
	matchRepo := matches.NewRepository(pool)
	memberRepo := members.NewRepository(pool)
	pointsRepo := scoring.NewRepository(pool)

	// === 4. Сервисы ===
	memberService := members.NewService(memberRepo)
	boosterService := boosters.NewService(boosterRepo, notifyService, clock, cfg.BoosterDefaultDurationDays)
	sweepService := sweeper.NewService(boosterRepo, notifyService, clock)
	autoPickService := autopick.NewService(matchRepo, boosterRepo, memberService, notifyService, clock, autopick.Options{
		BoosterID: cfg.AutoPickBoosterID,
		Window:    cfg.AutoPickWindow,
	})
	scoringService := scoring.NewService(pointsRepo, matchRepo, memberService)

	// === 5. HTTP ===
	srv := server.New(cfg, server.Handlers{
		Boosters: boosters.NewHandler(boosterService),
		Sweeper:  sweeper.NewHandler(sweepService),
		AutoPick: autopick.NewHandler(autoPickService),
		Scoring:  scoring.NewHandler(scoringService),
	}, pool)

	// === 6. Планировщик задач ===
	var scheduler *jobs.Scheduler
	if cfg.SchedulerEnabled {
		scheduler = jobs.NewScheduler(sweepService, autoPickService, jobs.Specs{
			Sweep:    cfg.SchedulerSweepSpec,
			AutoPick: cfg.SchedulerAutoPickSpec,
		}, common.LoadLocation(cfg.AppTimezone))
	}

	return &App{
		Server:    srv,
		Scheduler: scheduler,
		DB:        pool,
	}, nil
}

// Migrations — встроенные SQL-миграции, применяются по порядку версий.
var Migrations = []postgres.Migration{
	{Version: 1, SQL: migration001Boosters},
	{Version: 2, SQL: migration002Matches},
	{Version: 3, SQL: migration003Points},
	{Version: 4, SQL: migration004Notifications},
	{Version: 5, SQL: migration005SeedCatalog},
}

var migration001Boosters = `
CREATE TABLE IF NOT EXISTS booster_catalog (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    default_duration_days INTEGER NOT NULL DEFAULT 7 CHECK (default_duration_days >= 1),
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE TABLE IF NOT EXISTS booster_purchases (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    booster TEXT NOT NULL,
    amount BIGINT NOT NULL,
    source TEXT NOT NULL DEFAULT 'purchase',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_booster_purchases_user ON booster_purchases(user_id, booster);
CREATE TABLE IF NOT EXISTS booster_usages (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    booster TEXT NOT NULL,
    pool_id TEXT,
    match_id TEXT,
    status TEXT NOT NULL CHECK (status IN ('pending', 'active', 'consumed', 'expired', 'refunded')),
    expires_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_booster_usages_user ON booster_usages(user_id, booster);
CREATE INDEX IF NOT EXISTS idx_booster_usages_pending ON booster_usages(expires_at) WHERE status = 'pending';
CREATE TABLE IF NOT EXISTS booster_activations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    booster_id TEXT NOT NULL,
    pool_id TEXT,
    scope TEXT NOT NULL DEFAULT 'global',
    status TEXT NOT NULL DEFAULT 'active',
    expires_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_booster_activations_user ON booster_activations(booster_id, user_id) WHERE status = 'active';
`

var migration002Matches = `
CREATE TABLE IF NOT EXISTS pool_members (
    pool_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (pool_id, user_id)
);
CREATE TABLE IF NOT EXISTS matches (
    id TEXT PRIMARY KEY,
    pool_id TEXT NOT NULL,
    home_team TEXT NOT NULL,
    away_team TEXT NOT NULL,
    start_time TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL DEFAULT 'scheduled',
    home_score INTEGER,
    away_score INTEGER
);
CREATE INDEX IF NOT EXISTS idx_matches_scheduled ON matches(start_time) WHERE status = 'scheduled';
CREATE INDEX IF NOT EXISTS idx_matches_pool ON matches(pool_id);
CREATE TABLE IF NOT EXISTS predictions (
    id TEXT PRIMARY KEY,
    match_id TEXT NOT NULL REFERENCES matches(id),
    user_id TEXT NOT NULL,
    home_pred INTEGER NOT NULL CHECK (home_pred >= 0),
    away_pred INTEGER NOT NULL CHECK (away_pred >= 0),
    status TEXT NOT NULL DEFAULT 'active',
    outcome SMALLINT NOT NULL,
    source TEXT NOT NULL DEFAULT 'manual',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS predictions_one_active ON predictions(match_id, user_id) WHERE status = 'active';
`

var migration003Points = `
CREATE TABLE IF NOT EXISTS points (
    pool_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    points INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (pool_id, user_id)
);
`

var migration004Notifications = `
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    payload JSONB NOT NULL DEFAULT '{}'::jsonb,
    read_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);
`

var migration005SeedCatalog = `
INSERT INTO booster_catalog (id, name, default_duration_days, metadata)
VALUES ('auto_pick', 'Автопрогноз', 7, '{"default_prediction": {"home": 2, "away": 0}}'::jsonb)
ON CONFLICT (id) DO NOTHING;
`
