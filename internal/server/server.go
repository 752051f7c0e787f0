// Package server собирает HTTP-маршруты сервиса.
//
// Пользовательские маршруты требуют Bearer-токен, плановые — заголовок
// X-Cron-Secret. Логика живёт в обработчиках модулей, здесь только маршрутизация.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/bolao/internal/config"
	"serotonyl.ru/bolao/internal/features/autopick"
	"serotonyl.ru/bolao/internal/features/boosters"
	"serotonyl.ru/bolao/internal/features/scoring"
	"serotonyl.ru/bolao/internal/features/sweeper"
	"serotonyl.ru/bolao/internal/httputil"
	"serotonyl.ru/bolao/internal/metrics"
	"serotonyl.ru/bolao/internal/server/middleware"
)

// Pinger — проверка доступности хранилища для /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers — обработчики модулей.
type Handlers struct {
	Boosters *boosters.Handler
	Sweeper  *sweeper.Handler
	AutoPick *autopick.Handler
	Scoring  *scoring.Handler
}

// Server — HTTP-сервер сервиса.
type Server struct {
	http        *http.Server
	rateLimiter *middleware.RateLimiter
}

// New создаёт сервер с маршрутами.
func New(cfg *config.Config, h Handlers, db Pinger) *Server {
	rl := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	router := NewRouter(h, db, middleware.NewJWTAuth(cfg.AuthJWTSecret), cfg.CronSecret, rl)

	return &Server{
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: cfg.HTTPReadTimeout,
			WriteTimeout:      cfg.HTTPWriteTimeout,
		},
		rateLimiter: rl,
	}
}

// NewRouter собирает маршруты. Вынесен отдельно для тестов.
func NewRouter(h Handlers, db Pinger, auth *middleware.JWTAuth, cronSecret string, rl *middleware.RateLimiter) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recover, middleware.AccessLog)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthz(db)).Methods(http.MethodGet)

	// Пользовательские маршруты
	user := router.NewRoute().Subrouter()
	user.Use(auth.Middleware)
	user.Handle("/boosters/activate",
		rl.Middleware(http.HandlerFunc(h.Boosters.HandleActivate))).Methods(http.MethodPost)
	user.HandleFunc("/boosters/inventory", h.Boosters.HandleInventory).Methods(http.MethodGet)
	user.HandleFunc("/pools/{poolId}/points", h.Scoring.HandleLeaderboard).Methods(http.MethodGet)

	// Плановые маршруты (внешний планировщик)
	jobs := router.NewRoute().Subrouter()
	jobs.Use(middleware.SchedulerSecret(cronSecret))
	jobs.HandleFunc("/jobs/sweep-expired", h.Sweeper.HandleSweep).Methods(http.MethodPost)
	jobs.HandleFunc("/jobs/auto-pick", h.AutoPick.HandleRun).Methods(http.MethodPost)
	jobs.HandleFunc("/pools/{poolId}/recompute", h.Scoring.HandleRecompute).Methods(http.MethodPost)

	return router
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			log.WithError(err).Warn("Хранилище недоступно")
			httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{
				OK: false, Error: "хранилище недоступно",
			})
			return
		}
		httputil.WriteOK(w, nil)
	}
}

// Start слушает адрес до вызова Shutdown. Блокирует.
func (s *Server) Start() error {
	log.WithField("addr", s.http.Addr).Info("HTTP-сервер запущен")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown останавливает приём запросов и дожидается текущих.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Close()
	return s.http.Shutdown(ctx)
}
