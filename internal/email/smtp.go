package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// SMTPConfig configures an SMTPSender.
type SMTPConfig struct {
	Host     string
	Username string
	Password string
	Envelope Envelope
	Port     int
	Timeout  time.Duration
	UseTLS   bool
}

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	logger *slog.Logger
	now    func() time.Time
	cfg    SMTPConfig
}

// NewSMTPSender validates cfg and returns a sender.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: smtp host", common.ErrMissingConfig)
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if err := cfg.Envelope.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger, now: time.Now}, nil
}

// Send builds the message and hands it to the relay.
func (s *SMTPSender) Send(ctx context.Context, email service.Email) error {
	msg, err := BuildMessage(s.cfg.Envelope, email, s.now())
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", common.ErrEmailSend, err)
	}

	s.logger.Info("Email sent",
		"transport", "smtp",
		"host", s.cfg.Host,
		"recipients", len(s.cfg.Envelope.To),
		"attachments", len(email.Attachments))
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return err
		}
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if s.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(s.cfg.Envelope.From); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	for _, to := range s.cfg.Envelope.To {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("RCPT TO %s rejected: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	// The relay owns the message once DATA is accepted.
	if err := client.Quit(); err != nil {
		s.logger.Warn("SMTP QUIT failed after message was accepted", "host", s.cfg.Host, "error", err)
	}
	return nil
}
