package infra

import (
	"fmt"
	"net/smtp"

	"recovr/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends payment receipts to salesmen over SMTP.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

// NewMailer returns nil when SMTP_HOST is not configured; callers treat a
// nil mailer as "email disabled".
func NewMailer(cfg *config.Config) *Mailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     fmt.Sprintf("%s <%s>", cfg.CompanyName, cfg.SMTPUser),
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// SendReceipt mails body to a single recipient with the PDF attached.
func (m *Mailer) SendReceipt(to, subject, body, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach receipt: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
