// Package scoring — handlers.go обрабатывает HTTP-запросы пересчёта и таблицы очков.
package scoring

import (
	"net/http"

	"github.com/gorilla/mux"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/httputil"
)

// Handler обрабатывает запросы очков пула.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик очков.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleRecompute — POST /pools/{poolId}/recompute.
func (h *Handler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Recompute(r.Context(), mux.Vars(r)["poolId"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteOK(w, map[string]any{
		"updated":        res.Updated,
		"members":        res.Members,
		"matchesCounted": res.MatchesCounted,
	})
}

// HandleLeaderboard — GET /pools/{poolId}/points.
func (h *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserIDFrom(r.Context())
	if !ok {
		httputil.WriteError(w, common.ErrUnauthorized)
		return
	}

	records, err := h.service.Leaderboard(r.Context(), mux.Vars(r)["poolId"], userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []*PointsRecord{}
	}
	httputil.WriteOK(w, map[string]any{"points": records})
}
