package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medibook/internal/middlewares"
	"medibook/internal/models"
	"medibook/internal/services"
	"medibook/internal/utils"
)

const defaultStatsWindow = 7 * 24 * time.Hour

type AdminHandler struct {
	errorWriter
	adminService services.AdminService
}

func NewAdminHandler(adminService services.AdminService, production bool) *AdminHandler {
	return &AdminHandler{errorWriter: errorWriter{production: production}, adminService: adminService}
}

// target reads the admin principal and the {role}/{id} route variables.
func (h *AdminHandler) target(w http.ResponseWriter, r *http.Request) (*services.Principal, models.Role, primitive.ObjectID, bool) {
	admin, ok := middlewares.PrincipalFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return nil, "", primitive.NilObjectID, false
	}
	role, ok := models.ParseRole(mux.Vars(r)["role"])
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "role must be doctor or patient")
		return nil, "", primitive.NilObjectID, false
	}
	id, err := utils.GetObjectIDFromVars(r, "id")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return nil, "", primitive.NilObjectID, false
	}
	return admin, role, id, true
}

func (h *AdminHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	admin, role, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req models.SuspendRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.adminService.SuspendAccount(r.Context(), admin, role, id, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Account suspended", map[string]any{"user": account})
}

func (h *AdminHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	admin, role, id, ok := h.target(w, r)
	if !ok {
		return
	}

	account, err := h.adminService.ReactivateAccount(r.Context(), admin, role, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Account reactivated", map[string]any{"user": account})
}

func (h *AdminHandler) SetVerification(w http.ResponseWriter, r *http.Request) {
	admin, role, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req models.VerificationRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	status, _ := models.ParseVerificationStatus(req.Status)

	account, err := h.adminService.SetVerificationStatus(r.Context(), admin, role, id, status, req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Verification status updated", map[string]any{"user": account})
}

// AuditStats aggregates auth events since ?since= (RFC 3339), defaulting to
// the last seven days.
func (h *AdminHandler) AuditStats(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-defaultStatsWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = parsed
	}

	stats, err := h.adminService.AuditStats(r.Context(), since)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if stats == nil {
		stats = []models.AuditStat{}
	}
	utils.RespondWithSuccess(w, http.StatusOK, "", map[string]any{"since": since, "stats": stats})
}
