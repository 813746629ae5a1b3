package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"medibook/internal/middlewares"
	"medibook/internal/models"
	"medibook/internal/services"
	"medibook/internal/utils"
)

type AuthHandler struct {
	errorWriter
	authService  services.AuthService
	tokenService services.TokenService
}

func NewAuthHandler(authService services.AuthService, tokenService services.TokenService, production bool) *AuthHandler {
	return &AuthHandler{
		errorWriter:  errorWriter{production: production},
		authService:  authService,
		tokenService: tokenService,
	}
}

// principal fetches the caller set by AuthMiddleware. A missing principal is
// a routing mistake, not a client error.
func (h *AuthHandler) principal(w http.ResponseWriter, r *http.Request) (*services.Principal, bool) {
	p, ok := middlewares.PrincipalFromContext(r.Context())
	if !ok {
		zerolog.Ctx(r.Context()).Error().Str("path", r.URL.Path).Msg("Principal not found in context")
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
	}
	return p, ok
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.Register(r.Context(), req, requestInfo(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	message := "Registration successful, please check your email for the verification code"
	if !result.EmailSent {
		message = "Registration successful, but we could not send the verification email. Please request a new code"
	}
	utils.RespondWithSuccess(w, http.StatusCreated, message, map[string]any{
		"user":                 result.Account,
		"requiresVerification": true,
		"emailSent":            result.EmailSent,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.Login
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.Login(r.Context(), req, requestInfo(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "A login code has been sent to your email", map[string]any{
		"requiresOTP": true,
		"emailSent":   result.EmailSent,
	})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.VerifyOTP(r.Context(), req, requestInfo(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if result.Session == nil {
		utils.RespondWithSuccess(w, http.StatusOK, "Email verified successfully, you can now log in", map[string]any{
			"user": result.Account,
		})
		return
	}
	h.respondWithSession(w, "Login successful", result)
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, message string, result *services.VerifyResult) {
	http.SetCookie(w, h.tokenService.Cookie(result.Session.Token))

	data := map[string]any{
		"user":                  result.Account,
		"token":                 result.Session.Token,
		"session":               result.Session.Session,
		"loggedOutOtherDevices": result.Session.HadPriorDevice,
		"revokedSessions":       result.Session.RevokedCount,
	}
	if result.PreviousLogin != nil {
		data["previousLogin"] = result.PreviousLogin
	}
	if result.Session.HadPriorDevice {
		message += ". You have been logged out from your other device"
	}
	utils.RespondWithSuccess(w, http.StatusOK, message, data)
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.ResendOTPRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.authService.ResendOTP(r.Context(), req, requestInfo(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "A new verification code has been sent", nil)
}

func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLogin
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.AdminLogin(r.Context(), req, requestInfo(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithSession(w, "Admin login successful", result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.authService.Logout(r.Context(), p, requestInfo(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	http.SetCookie(w, h.tokenService.ClearCookie())
	utils.RespondWithSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	account, err := h.authService.Me(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "", map[string]any{
		"user": account,
		"role": account.Role,
	})
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var update models.ProfileUpdate
	if err := utils.DecodeAndValidate(w, r, &update); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.authService.UpdateProfile(r.Context(), p, update, requestInfo(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Profile updated", map[string]any{"user": account})
}

func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req models.DeleteAccountRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.DeleteAccount(r.Context(), p, req.Password, requestInfo(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	http.SetCookie(w, h.tokenService.ClearCookie())
	utils.RespondWithSuccess(w, http.StatusOK, "Account deleted", nil)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req, requestInfo(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "If an account exists for this email, a password reset code has been sent", nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req, requestInfo(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Password reset successful, please log in with your new password", nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ChangePassword(r.Context(), p, req, requestInfo(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, "Password changed successfully", nil)
}
