package handlers

import (
	"net/http"

	"supplierhub/internal/utils"
)

// HealthChecker reports the state of a backing store.
type HealthChecker interface {
	Health() map[string]string
}

type CommonHandler struct {
	db HealthChecker
}

func NewCommonHandler(db HealthChecker) *CommonHandler {
	return &CommonHandler{db: db}
}

func (h *CommonHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := h.db.Health()

	status := http.StatusOK
	if _, failed := health["error"]; failed {
		status = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, status, health)
}
