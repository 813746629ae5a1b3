package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Account Metrics
	NewAccountsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medibook_new_accounts_total",
		Help: "Total number of account registrations.",
	}, []string{"role"})
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medibook_login_attempts_total",
		Help: "Total number of login attempts (successful and failed).",
	}, []string{"role", "status"}) // status: "success" or "failed"
	RegisteredAccounts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "medibook_registered_accounts",
		Help: "Number of stored accounts per role.",
	}, []string{"role"})
	PasswordResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medibook_password_resets_total",
		Help: "Total number of completed password resets.",
	})

	// OTP Metrics
	OTPIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medibook_otp_issued_total",
		Help: "Total number of one-time passcodes issued.",
	}, []string{"purpose"})
	OTPVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medibook_otp_verifications_total",
		Help: "OTP verification outcomes.",
	}, []string{"purpose", "outcome"}) // outcome: verified, invalid, expired, exhausted, not_found

	// Session Metrics
	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medibook_sessions_created_total",
		Help: "Total number of sessions created.",
	})
	SessionsRevokedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medibook_sessions_revoked_total",
		Help: "Total number of sessions deactivated, by reason.",
	}, []string{"reason"})

	// Audit Metrics
	AuditDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medibook_audit_dropped_total",
		Help: "Audit entries dropped because the dispatcher buffer was full.",
	})
	AuditWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medibook_audit_write_errors_total",
		Help: "Audit entries that failed to persist.",
	})
)
