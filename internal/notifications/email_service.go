package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"moviebooking/internal/shared/config"
	"moviebooking/pkg/logger"

	"gopkg.in/gomail.v2"
)

// Attachment is a file carried by an email
type Attachment struct {
	Filename string
	Data     []byte
}

// Email is a rendered message ready to be sent
type Email struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer sends rendered emails
type Mailer interface {
	Send(ctx context.Context, email *Email) error
}

// NewMailer returns an SMTP mailer, or a log-only mailer when SMTP_HOST is unset
func NewMailer(cfg config.EmailConfig) Mailer {
	if cfg.SMTPHost == "" {
		return &LogMailer{logger: logger.GetDefault()}
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer delivers email through gomail
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.FromEmail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/html", email.HTMLBody)

	for _, attachment := range email.Attachments {
		data := attachment.Data
		msg.Attach(attachment.Filename, gomail.Rename(attachment.Filename), gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewReader(data))
			return err
		}))
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}
	return nil
}

// LogMailer only logs outgoing mail
type LogMailer struct {
	logger *logger.Logger
}

func (m *LogMailer) Send(ctx context.Context, email *Email) error {
	m.logger.Info("email not sent (smtp disabled)",
		"to", email.To,
		"subject", email.Subject,
		"attachments", len(email.Attachments),
	)
	return nil
}

var templates = template.Must(template.New("emails").Parse(`
{{define "booking_confirmed"}}
<h2>Your tickets are confirmed</h2>
<p>Hi {{.OwnerLoginName}},</p>
<p>Booking <strong>{{.Reference}}</strong> for <strong>{{.MovieName}}</strong> at {{.TheatreName}}.</p>
<p>Seats: {{range $i, $s := .Seats}}{{if $i}}, {{end}}{{$s}}{{end}}</p>
<p>Total: {{printf "%.2f" .TotalPrice}}</p>
<p>Show the attached QR code at the entrance.</p>
{{end}}
{{define "booking_cancelled"}}
<h2>Your booking was cancelled</h2>
<p>Hi {{.OwnerLoginName}},</p>
<p>Booking <strong>{{.Reference}}</strong> for <strong>{{.MovieName}}</strong> at {{.TheatreName}} has been cancelled.</p>
<p>Released seats: {{range $i, $s := .Seats}}{{if $i}}, {{end}}{{$s}}{{end}}</p>
{{end}}
{{define "password_reset"}}
<h2>Password reset</h2>
<p>Hi {{.Name}},</p>
<p>Use this token to reset your password: <strong>{{.Token}}</strong></p>
<p>It expires in {{.ExpiresIn}} and can be used once.</p>
{{end}}
`))

func renderTemplate(name string, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return body.String(), nil
}
