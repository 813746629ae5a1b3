package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"medibook/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var mailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Notifier delivers user facing messages. Delivery failures are returned to
// the caller, which decides whether they matter.
type Notifier interface {
	SendOTP(ctx context.Context, to, name, code string, purpose models.OTPPurpose) error
	SendWelcome(ctx context.Context, to, name string, role models.Role) error
	SendPasswordChanged(ctx context.Context, to, name string, changedAt time.Time) error
	SendAccountSuspended(ctx context.Context, to, name, reason, contact string) error
}

type emailNotifier struct {
	mailer  EmailService
	otpTTL  time.Duration
	support string
}

func NewEmailNotifier(mailer EmailService, otpTTL time.Duration, supportEmail string) Notifier {
	return &emailNotifier{mailer: mailer, otpTTL: otpTTL, support: supportEmail}
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (n *emailNotifier) SendOTP(_ context.Context, to, name, code string, purpose models.OTPPurpose) error {
	subject, intro := "Your verification code", "Use this code to continue."
	switch purpose {
	case models.OTPPurposeRegistration:
		subject, intro = "Verify your MediBook email", "Use this code to verify your email address."
	case models.OTPPurposeLogin:
		subject, intro = "Your MediBook login code", "Use this code to finish signing in."
	case models.OTPPurposePasswordReset:
		subject, intro = "Reset your MediBook password", "Use this code to reset your password."
	}
	body, err := render("otp.html", map[string]any{
		"Name":      name,
		"Intro":     intro,
		"Code":      code,
		"ExpiresIn": int(n.otpTTL.Minutes()),
	})
	if err != nil {
		return err
	}
	return n.mailer.SendEmail(to, subject, body)
}

func (n *emailNotifier) SendWelcome(_ context.Context, to, name string, role models.Role) error {
	body, err := render("welcome.html", map[string]any{"Name": name, "Role": string(role)})
	if err != nil {
		return err
	}
	return n.mailer.SendEmail(to, "Welcome to MediBook", body)
}

func (n *emailNotifier) SendPasswordChanged(_ context.Context, to, name string, changedAt time.Time) error {
	body, err := render("password_changed.html", map[string]any{
		"Name":      name,
		"ChangedAt": changedAt.Format(time.RFC1123),
		"Support":   n.support,
	})
	if err != nil {
		return err
	}
	return n.mailer.SendEmail(to, "Your MediBook password was changed", body)
}

func (n *emailNotifier) SendAccountSuspended(_ context.Context, to, name, reason, contact string) error {
	body, err := render("suspended.html", map[string]any{"Name": name, "Reason": reason, "Contact": contact})
	if err != nil {
		return err
	}
	return n.mailer.SendEmail(to, "Your MediBook account has been suspended", body)
}
