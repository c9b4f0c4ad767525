package notify

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds the smtp driver settings, decoded from the notifier
// driver map in the main config.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// StartTLS upgrades the connection after connect; defaults to true.
	StartTLS *bool `mapstructure:"starttls"`
}

// SMTPNotifier sends messages over SMTP.
type SMTPNotifier struct {
	cfg  SMTPConfig
	from string
}

// NewSMTPNotifier decodes raw driver settings and validates them.
func NewSMTPNotifier(from string, raw map[string]any) (*SMTPNotifier, error) {
	var cfg SMTPConfig
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode smtp settings: %w", err)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp notifier requires host")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if from == "" {
		return nil, fmt.Errorf("smtp notifier requires a from address")
	}
	return &SMTPNotifier{cfg: cfg, from: from}, nil
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(n.from); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	m.Subject(msg.subject())
	m.SetBodyString(gomail.TypeTextPlain, body(msg))

	opts := []gomail.Option{gomail.WithPort(n.cfg.Port)}
	if n.cfg.StartTLS == nil || *n.cfg.StartTLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(n.cfg.Username),
			gomail.WithPassword(n.cfg.Password))
	}
	client, err := gomail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func body(msg Message) string {
	switch msg.Kind {
	case KindInvite:
		return fmt.Sprintf("You have been invited to %s.\n\nView your invitation and respond here:\n%s\n", msg.EventName, msg.Link)
	case KindVerification:
		return fmt.Sprintf("Confirm your email address by opening this link:\n%s\n", msg.Link)
	case KindReset:
		return fmt.Sprintf("A password reset was requested for your account.\n\nChoose a new password here:\n%s\n\nThe link expires in one hour. If you did not request this, you can ignore this message.\n", msg.Link)
	case KindWelcome:
		return "Your email address is verified and your account is ready.\n"
	}
	return msg.Link
}
