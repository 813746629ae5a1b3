package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"medibook/internal/models"
	"medibook/internal/services"
	"medibook/internal/utils"
)

type principalKey struct{}

// PrincipalFromContext returns the caller set by AuthMiddleware.
func PrincipalFromContext(ctx context.Context) (*services.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*services.Principal)
	return p, ok && p != nil
}

// WithPrincipal is used by AuthMiddleware and by tests that bypass it.
func WithPrincipal(ctx context.Context, p *services.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// TokenFromRequest reads the session token from the cookie, falling back to
// an Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(services.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

func AuthMiddleware(auth services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeAuthError(w, r, err)
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			logger := zerolog.Ctx(ctx).With().Str("accountId", p.AccountID.Hex()).Str("role", string(p.Role)).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var suspended *services.SuspendedError
	switch {
	case errors.As(err, &suspended):
		utils.RespondWithErrorDetails(w, http.StatusForbidden, services.ErrAccountSuspended.Error(), map[string]any{
			"reason":       suspended.Reason,
			"adminContact": suspended.AdminContact,
		})
	case errors.Is(err, services.ErrTokenExpired):
		utils.RespondWithError(w, http.StatusUnauthorized, "Token expired, please log in again")
	case errors.Is(err, services.ErrTokenInvalid):
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, services.ErrSessionExpired):
		utils.RespondWithError(w, http.StatusUnauthorized, services.ErrSessionExpired.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Authentication failed")
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// RequireRole rejects authenticated callers whose role is not listed. It must
// run after AuthMiddleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.RespondWithError(w, http.StatusForbidden, "You do not have access to this resource")
		})
	}
}
