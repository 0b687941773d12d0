// Package mailer sends the contact notification and confirmation emails over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/observability"

	"github.com/wneessen/go-mail"
)

// ErrNotConfigured is returned when the SMTP host, sender or recipient is missing.
var ErrNotConfigured = errors.New("mailer: SMTP_HOST, SMTP_FROM and CONTACT_RECIPIENT must be set")

// Settings holds SMTP connection and addressing settings.
type Settings struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Recipient string
}

// SettingsFromConfig extracts mail settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		Recipient: cfg.ContactRecipient,
	}
}

func (s Settings) configured() bool {
	return s.Host != "" && s.From != "" && s.Recipient != ""
}

// Submission is the content of a contact form as it appears in emails.
type Submission struct {
	Name      string
	Email     string
	Message   string
	IPAddress string
	UserAgent string
	SentAt    time.Time
}

// Mailer delivers messages through go-mail. The SMTP connection is opened per
// send; the site sends a handful of mails per hour at most.
type Mailer struct {
	settings Settings
	send     func(ctx context.Context, msg *mail.Msg) error
}

// New creates a Mailer. Missing settings are reported on first send.
func New(settings Settings) *Mailer {
	m := &Mailer{settings: settings}
	m.send = m.dialAndSend
	return m
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.settings.Port),
		mail.WithTimeout(10 * time.Second),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.settings.Port == 465 {
		opts = append(opts, mail.WithSSLPort(false))
	}
	if m.settings.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.settings.Username),
			mail.WithPassword(m.settings.Password),
		)
	}

	client, err := mail.NewClient(m.settings.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: create client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

// SendNotification emails the site owner about a new submission. Replies go
// to the submitter.
func (m *Mailer) SendNotification(ctx context.Context, sub Submission) (err error) {
	if !m.settings.configured() {
		return ErrNotConfigured
	}

	span, ctx := observability.StartClientSpan(ctx, "smtp", "notification")
	defer span.End()
	defer observability.TrackUpstream("smtp", &err)()
	defer func() { span.SetError(err) }()

	msg, err := m.notificationMessage(sub)
	if err != nil {
		return err
	}
	return m.send(ctx, msg)
}

// SendConfirmation emails the submitter an acknowledgement.
func (m *Mailer) SendConfirmation(ctx context.Context, sub Submission) (err error) {
	if !m.settings.configured() {
		return ErrNotConfigured
	}

	span, ctx := observability.StartClientSpan(ctx, "smtp", "confirmation")
	defer span.End()
	defer observability.TrackUpstream("smtp", &err)()
	defer func() { span.SetError(err) }()

	msg, err := m.confirmationMessage(sub)
	if err != nil {
		return err
	}
	return m.send(ctx, msg)
}

func (m *Mailer) notificationMessage(sub Submission) (*mail.Msg, error) {
	text, html, err := renderNotification(sub)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.settings.From); err != nil {
		return nil, fmt.Errorf("mailer: from address: %w", err)
	}
	if err := msg.To(m.settings.Recipient); err != nil {
		return nil, fmt.Errorf("mailer: recipient address: %w", err)
	}
	if err := msg.ReplyTo(sub.Email); err != nil {
		return nil, fmt.Errorf("mailer: reply-to address: %w", err)
	}
	msg.Subject("New contact form submission from " + sub.Name)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}

func (m *Mailer) confirmationMessage(sub Submission) (*mail.Msg, error) {
	text, html, err := renderConfirmation(sub)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.settings.From); err != nil {
		return nil, fmt.Errorf("mailer: from address: %w", err)
	}
	if err := msg.To(sub.Email); err != nil {
		return nil, fmt.Errorf("mailer: submitter address: %w", err)
	}
	msg.Subject("Thanks for getting in touch")
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}
