package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/jwalitptl/intake-api/internal/config"
	"github.com/jwalitptl/intake-api/internal/model"
)

// Service sends reviewer-facing notification mail.
type Service interface {
	SendReportReady(ctx context.Context, to string, payload *model.ReportEventPayload) error
	SendCustom(ctx context.Context, to, subject, content string) error
}

type smtpService struct {
	cfg    config.EmailConfig
	dialer *gomail.Dialer
}

func NewService(cfg config.EmailConfig) Service {
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpService) SendReportReady(ctx context.Context, to string, payload *model.ReportEventPayload) error {
	subject := fmt.Sprintf("Intake report ready for review (%s priority)", payload.Triage)
	body := fmt.Sprintf(
		"A new intake report is awaiting review.\n\nReport: %s\nSession: %s\nPriority: %s\n",
		payload.ReportID, payload.SessionID, payload.Triage,
	)
	return s.SendCustom(ctx, to, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
