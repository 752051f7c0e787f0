// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"bolao"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"bolao"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"America/Sao_Paulo"`

	// --- HTTP ---
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`

	// --- Auth ---
	// Секрет, которым подписаны JWT провайдера аутентификации (HS256).
	// Пустой — пользовательские эндпоинты отвечают 500 (сервис не настроен).
	AuthJWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	// Секрет планировщика: открытый текст или Argon2id-хеш (scripts/generate_hash.go).
	// Пустой — плановые эндпоинты открыты для вызовов без заголовка.
	CronSecret string `envconfig:"CRON_SECRET"`

	// --- Scheduler ---
	SchedulerEnabled      bool   `envconfig:"SCHEDULER_ENABLED" default:"false"`
	SchedulerSweepSpec    string `envconfig:"SCHEDULER_SWEEP_SPEC" default:"*/5 * * * *"`
	SchedulerAutoPickSpec string `envconfig:"SCHEDULER_AUTOPICK_SPEC" default:"*/5 * * * *"`

	// --- Boosters ---
	BoosterDefaultDurationDays int           `envconfig:"BOOSTER_DEFAULT_DURATION_DAYS" default:"7"`
	AutoPickBoosterID          string        `envconfig:"AUTOPICK_BOOSTER_ID" default:"auto_pick"`
	AutoPickWindow             time.Duration `envconfig:"AUTOPICK_WINDOW" default:"60m"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Telegram (опциональный канал уведомлений для операторов) ---
	TelegramBotToken     string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramNotifyChatID int64  `envconfig:"TELEGRAM_NOTIFY_CHAT_ID"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// TelegramEnabled сообщает, настроена ли пересылка уведомлений в Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramNotifyChatID != 0
}

// IsProduction — true для APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.BoosterDefaultDurationDays < 1 {
		return fmt.Errorf("BOOSTER_DEFAULT_DURATION_DAYS должен быть >= 1")
	}
	if c.AutoPickWindow <= 0 {
		return fmt.Errorf("AUTOPICK_WINDOW должен быть > 0")
	}
	if strings.TrimSpace(c.AutoPickBoosterID) == "" {
		return fmt.Errorf("AUTOPICK_BOOSTER_ID не задан")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW должны быть > 0")
	}
	if c.SchedulerEnabled && (c.SchedulerSweepSpec == "" || c.SchedulerAutoPickSpec == "") {
		return fmt.Errorf("SCHEDULER_*_SPEC обязательны при SCHEDULER_ENABLED=true")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.AutoPickBoosterID = strings.TrimSpace(cfg.AutoPickBoosterID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
