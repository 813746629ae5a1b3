package handlers

import (
	"net/http"

	"medibook/internal/services"
	"medibook/internal/utils"
)

type SessionHandler struct {
	*AuthHandler
}

func NewSessionHandler(auth *AuthHandler) *SessionHandler {
	return &SessionHandler{AuthHandler: auth}
}

func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	sessions, err := h.authService.Sessions(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []services.SessionView{}
	}
	utils.RespondWithSuccess(w, http.StatusOK, "", map[string]any{"sessions": sessions})
}

func (h *SessionHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id, err := utils.GetObjectIDFromVars(r, "id")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.RevokeSession(r.Context(), p, id, requestInfo(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if id == p.SessionID {
		http.SetCookie(w, h.tokenService.ClearCookie())
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Session revoked", nil)
}

func (h *SessionHandler) RevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	n, err := h.authService.RevokeOtherSessions(r.Context(), p, requestInfo(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Logged out from all other devices", map[string]any{"revokedCount": n})
}
