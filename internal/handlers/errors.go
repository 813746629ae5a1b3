package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"medibook/internal/services"
	"medibook/internal/utils"
)

// errorWriter maps service errors to HTTP responses. Internal error details
// are only returned outside production.
type errorWriter struct {
	production bool
}

func (e errorWriter) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		suspended *services.SuspendedError
		limited   *services.RateLimitError
		otpErr    *services.OTPError
	)

	switch {
	case errors.As(err, &suspended):
		utils.RespondWithErrorDetails(w, http.StatusForbidden, services.ErrAccountSuspended.Error(), map[string]any{
			"reason":       suspended.Reason,
			"adminContact": suspended.AdminContact,
		})
	case errors.As(err, &limited):
		utils.RespondWithErrorDetails(w, http.StatusTooManyRequests, limited.Error(), map[string]any{
			"waitSeconds": limited.WaitSeconds,
		})
	case errors.As(err, &otpErr):
		utils.RespondWithErrorDetails(w, http.StatusBadRequest, otpErr.Err.Error(), map[string]any{
			"attemptsRemaining": otpErr.AttemptsRemaining,
		})
	case errors.Is(err, services.ErrEmailNotVerified):
		utils.RespondWithErrorDetails(w, http.StatusBadRequest, err.Error(), map[string]any{
			"requiresVerification": true,
			"resendEndpoint":       "/api/auth/resend-otp",
		})
	case errors.Is(err, services.ErrResetLimitReached):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrTokenInvalid),
		errors.Is(err, services.ErrTokenExpired),
		errors.Is(err, services.ErrSessionExpired):
		utils.RespondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrSessionNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrOTPNotFound),
		errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrOTPInvalid),
		errors.Is(err, services.ErrOTPExhausted),
		errors.Is(err, services.ErrPasswordReuse),
		errors.Is(err, services.ErrIncorrectPassword),
		errors.Is(err, services.ErrAlreadyVerified):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled service error")
		message := "Internal server error"
		if !e.production {
			message = err.Error()
		}
		utils.RespondWithError(w, http.StatusInternalServerError, message)
	}
}

func requestInfo(r *http.Request) services.RequestInfo {
	return services.RequestInfo{IPAddress: utils.ClientIP(r), UserAgent: r.UserAgent()}
}
