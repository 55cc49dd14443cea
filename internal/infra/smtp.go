package infra

import (
	"fmt"
	"net/smtp"

	"cajaflow/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer hands closing reports to the SMTP relay.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configured is false when no relay host is set; callers skip delivery then.
func (m *Mailer) Configured() bool { return m.host != "" }

// SendCierre sends a closing report with the PDF attached.
func (m *Mailer) SendCierre(to, subject, body, pdfPath string) error {
	e, err := m.cierreMessage(to, subject, body, pdfPath)
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}

// cierreMessage builds the message without touching the network. A missing
// PDF is an error: the report is the reason the message exists.
func (m *Mailer) cierreMessage(to, subject, body, pdfPath string) (*email.Email, error) {
	if to == "" {
		return nil, fmt.Errorf("mailer: empty recipient")
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return nil, fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}
	return e, nil
}
