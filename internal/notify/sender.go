package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/abelcubano/main-project/internal/config"
)

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender creates a sender for the configured relay.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) message(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func (s *SMTPSender) options() []mail.Option {
	opts := []mail.Option{mail.WithPort(s.cfg.Port)}
	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}
	if s.cfg.ImplicitTLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// Send dials the relay and delivers one message.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	m, err := s.message(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Verify dials the relay and authenticates without sending anything.
func (s *SMTPSender) Verify(ctx context.Context) error {
	client, err := mail.NewClient(s.cfg.Host, s.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp dial %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	return client.Close()
}

// Verifier is implemented by senders that can check their transport.
type Verifier interface {
	Verify(ctx context.Context) error
}

// CheckConnection verifies the sender's transport once and logs the outcome.
// A failure is only a warning; invoices are still generated and each failed
// email is reported by the cycle.
func CheckConnection(ctx context.Context, sender Sender, log *slog.Logger) error {
	v, ok := sender.(Verifier)
	if !ok {
		return nil
	}
	if err := v.Verify(ctx); err != nil {
		log.Warn("email service connection failed, invoices will not be emailed",
			slog.String("error", err.Error()),
		)
		return err
	}
	log.Info("email service connected")
	return nil
}

// LogSender logs messages instead of sending them. It is used when SMTP is
// disabled.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the message envelope.
func (s *LogSender) Send(_ context.Context, msg *Message) error {
	s.log.Info("smtp disabled, email not sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

// NewSender picks the SMTP sender when enabled and the log sender otherwise.
func NewSender(cfg config.SMTPConfig, log *slog.Logger) Sender {
	if cfg.Enabled {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(log)
}
