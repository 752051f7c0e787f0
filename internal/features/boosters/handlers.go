// Package boosters — handlers.go: HTTP-обработчики активации и инвентаря.
// Пользователь уже проверен middleware и лежит в контексте запроса.
package boosters

import (
	"net/http"

	"serotonyl.ru/bolao/internal/common"
	"serotonyl.ru/bolao/internal/httputil"
)

// Handler обрабатывает запросы к бустерам.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик бустеров.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type activateRequest struct {
	BoosterID string  `json:"boosterId"`
	PoolID    *string `json:"poolId,omitempty"`
}

// HandleActivate — POST /boosters/activate.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserIDFrom(r.Context())
	if !ok {
		httputil.WriteError(w, common.ErrUnauthorized)
		return
	}

	var req activateRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Activate(r.Context(), userID, req.BoosterID, req.PoolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteOK(w, map[string]any{
		"activationId": res.ActivationID,
		"expiresAt":    res.ExpiresAt,
		"durationDays": res.DurationDays,
		"extended":     res.Extended,
	})
}

// HandleInventory — GET /boosters/inventory.
func (h *Handler) HandleInventory(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserIDFrom(r.Context())
	if !ok {
		httputil.WriteError(w, common.ErrUnauthorized)
		return
	}

	items, err := h.service.Inventory(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []*InventoryItem{}
	}
	httputil.WriteOK(w, map[string]any{"inventory": items})
}
