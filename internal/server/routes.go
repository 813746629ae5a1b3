package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medibook/internal/handlers"
	"medibook/internal/middlewares"
	"medibook/internal/models"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(middlewares.RequestLogger)
	r.Use(middlewares.Cors(s.cfg.AllowedOrigins))
	r.Use(middlewares.Instrument)

	ch := handlers.NewCommonHandler(s.health)
	r.HandleFunc("/health", ch.HealthHandler).Methods("GET", "OPTIONS")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/auth").Subrouter()
	api.Use(s.limiter.Limit)

	s.registerAuthRoutes(api)
	s.registerAdminRoutes(api)

	return r
}

func (s *Server) registerAuthRoutes(r *mux.Router) {
	ah := handlers.NewAuthHandler(s.authService, s.tokenService, s.cfg.IsProduction())
	sh := handlers.NewSessionHandler(ah)
	auth := middlewares.AuthMiddleware(s.authService)

	r.HandleFunc("/register", ah.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/login", ah.Login).Methods("POST", "OPTIONS")
	r.HandleFunc("/verify-otp", ah.VerifyOTP).Methods("POST", "OPTIONS")
	r.HandleFunc("/resend-otp", ah.ResendOTP).Methods("POST", "OPTIONS")
	r.HandleFunc("/admin/login", ah.AdminLogin).Methods("POST", "OPTIONS")
	r.HandleFunc("/forgot-password", ah.ForgotPassword).Methods("POST", "OPTIONS")
	r.HandleFunc("/reset-password", ah.ResetPassword).Methods("POST", "OPTIONS")

	r.Handle("/logout", auth(http.HandlerFunc(ah.Logout))).Methods("POST", "OPTIONS")
	r.Handle("/me", auth(http.HandlerFunc(ah.Me))).Methods("GET", "OPTIONS")
	r.Handle("/me", auth(http.HandlerFunc(ah.UpdateMe))).Methods("PATCH", "OPTIONS")
	r.Handle("/me", auth(http.HandlerFunc(ah.DeleteMe))).Methods("DELETE", "OPTIONS")
	r.Handle("/change-password", auth(http.HandlerFunc(ah.ChangePassword))).Methods("PUT", "OPTIONS")

	r.Handle("/sessions", auth(http.HandlerFunc(sh.ListSessions))).Methods("GET", "OPTIONS")
	r.Handle("/sessions", auth(http.HandlerFunc(sh.RevokeOtherSessions))).Methods("DELETE", "OPTIONS")
	r.Handle("/sessions/{id}", auth(http.HandlerFunc(sh.RevokeSession))).Methods("DELETE", "OPTIONS")
}

func (s *Server) registerAdminRoutes(r *mux.Router) {
	adh := handlers.NewAdminHandler(s.adminService, s.cfg.IsProduction())
	admin := func(h http.HandlerFunc) http.Handler {
		return middlewares.AuthMiddleware(s.authService)(middlewares.RequireRole(models.RoleAdmin)(h))
	}

	r.Handle("/admin/accounts/{role}/{id}/suspend", admin(adh.Suspend)).Methods("PUT", "OPTIONS")
	r.Handle("/admin/accounts/{role}/{id}/reactivate", admin(adh.Reactivate)).Methods("PUT", "OPTIONS")
	r.Handle("/admin/accounts/{role}/{id}/verification", admin(adh.SetVerification)).Methods("PUT", "OPTIONS")
	r.Handle("/admin/audit/stats", admin(adh.AuditStats)).Methods("GET", "OPTIONS")
}
