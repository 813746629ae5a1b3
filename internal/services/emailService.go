package services

import (
	"errors"

	"gopkg.in/gomail.v2"

	"medibook/internal/config"
)

var ErrMailerNotConfigured = errors.New("smtp is not configured")

type EmailService interface {
	SendEmail(to, subject, htmlBody string) error
}

type emailService struct {
	cfg config.SMTPConfig
}

func NewEmailService(cfg config.SMTPConfig) EmailService {
	return &emailService{cfg: cfg}
}

func (e *emailService) SendEmail(to, subject, htmlBody string) error {
	if e.cfg.Host == "" {
		return ErrMailerNotConfigured
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(e.cfg.Host, e.cfg.Port, e.cfg.Username, e.cfg.Password)
	return d.DialAndSend(m)
}
