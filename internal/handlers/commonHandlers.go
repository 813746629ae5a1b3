package handlers

import (
	"net/http"

	"medibook/internal/utils"
)

// HealthChecker reports storage health. The Mongo database service satisfies
// it; memory storage uses a static checker.
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
	stats := h.db.Health()
	code := http.StatusOK
	if _, down := stats["error"]; down {
		code = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, code, stats)
}
