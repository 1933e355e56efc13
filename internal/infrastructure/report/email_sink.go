package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gomail "gopkg.in/mail.v2"

	"HKNewsDigest/internal/config"
	"HKNewsDigest/internal/ports"
)

// EmailSink delivers the digest via SMTP.
type EmailSink struct {
	cfg    config.EmailConfig
	logger *slog.Logger
}

var _ ports.ReportSink = (*EmailSink)(nil)

// NewEmailSink creates a sink with the given SMTP configuration.
func NewEmailSink(cfg config.EmailConfig, logger *slog.Logger) *EmailSink {
	return &EmailSink{cfg: cfg, logger: logger}
}

// Deliver sends the digest with HTML body and plain text fallback.
func (s *EmailSink) Deliver(ctx context.Context, runDate time.Time, report ports.RenderedReport) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", report.Subject)

	if report.HTML != "" && report.Text != "" {
		m.SetBody("text/plain", report.Text)
		m.AddAlternative("text/html", report.HTML)
	} else if report.HTML != "" {
		m.SetBody("text/html", report.HTML)
	} else {
		m.SetBody("text/plain", report.Text)
	}

	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send digest to %s: %w", s.cfg.ToEmail, err)
	}

	if s.logger != nil {
		s.logger.Info("digest emailed", "to", s.cfg.ToEmail, "subject", report.Subject)
	}
	return nil
}
