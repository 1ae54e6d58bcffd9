package email

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/chillhabit/chillhabit/internal/common"
	"github.com/chillhabit/chillhabit/internal/logging"
)

const fromDisplayName = "Chill Habit Tracker"

// SMTPSender delivers mail over SMTP. Port 465 switches the client to
// implicit TLS.
type SMTPSender struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	frontendURL string
	logger      logging.Logger
}

func NewSMTPSender(host string, port int, username, password, from, frontendURL string, logger logging.Logger) *SMTPSender {
	return &SMTPSender{
		host:        host,
		port:        port,
		username:    username,
		password:    password,
		from:        from,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, to, username, token string) error {
	body, err := renderVerificationBody(s.frontendURL, username, token)
	if err != nil {
		return err
	}
	return s.send(ctx, to, subjectVerification, body)
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, to, username, token string) error {
	body, err := renderPasswordResetBody(s.frontendURL, username, token)
	if err != nil {
		return err
	}
	return s.send(ctx, to, subjectPasswordReset, body)
}

func (s *SMTPSender) SendPasswordChangeConfirmation(ctx context.Context, to, username string) error {
	body, err := renderPasswordChangedBody(username, time.Now())
	if err != nil {
		return err
	}
	return s.send(ctx, to, subjectPasswordChanged, body)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(fromDisplayName, s.from); err != nil {
		return fmt.Errorf("%w: invalid sender address: %w", common.ErrorEmailSendFailed, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: invalid recipient address: %w", common.ErrorEmailSendFailed, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
	}
	if s.port == 465 {
		opts = append(opts, mail.WithSSL())
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorEmailSendFailed, err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error(ctx, "email delivery failed", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("%w: %w", common.ErrorEmailSendFailed, err)
	}

	s.logger.Info(ctx, "email sent", "to", to, "subject", subject)
	return nil
}
