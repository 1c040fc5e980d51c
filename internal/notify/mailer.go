package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers one notification.
type Mailer interface {
	Send(ctx context.Context, n Notification) error
}

// LogMailer writes notifications to the log instead of sending them.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer is the development mailer.
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, n Notification) error {
	to := make([]string, 0, len(n.Recipients))
	for _, r := range n.Recipients {
		to = append(to, r.Email)
	}
	m.log.Info().Strs("to", to).Str("subject", n.Subject).Msg("mail not sent, log backend")
	return nil
}

// SMTPConfig holds SMTP server settings.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
}

// SMTPMailer sends one message per recipient over SMTP.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer builds an SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, n Notification) error {
	for _, r := range n.Recipients {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.sendOne(r, n); err != nil {
			return fmt.Errorf("smtp: send to %s: %w", r.Email, err)
		}
	}
	return nil
}

func (m *SMTPMailer) sendOne(to Recipient, n Notification) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	msg := m.compose(to, n)

	if !m.cfg.UseTLS {
		return smtp.SendMail(addr, auth, m.cfg.FromEmail, []string{to.Email}, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.FromEmail); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to.Email); err != nil {
		return fmt.Errorf("rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return w.Close()
}

func (m *SMTPMailer) compose(to Recipient, n Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromEmail)
	if to.Name != "" {
		fmt.Fprintf(&b, "To: %s <%s>\r\n", to.Name, to.Email)
	} else {
		fmt.Fprintf(&b, "To: %s\r\n", to.Email)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", n.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(n.HTML)
	return []byte(b.String())
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	key      string
	from     *sgmail.Email
	host     string
	endpoint string
}

// NewSendGridMailer builds a SendGrid mailer.
func NewSendGridMailer(apiKey, fromName, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		key:      apiKey,
		from:     sgmail.NewEmail(fromName, fromEmail),
		host:     "https://api.sendgrid.com",
		endpoint: "/v3/mail/send",
	}
}

func (m *SendGridMailer) prepare(n Notification) *sgmail.SGMailV3 {
	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.Subject = n.Subject
	// One personalization per recipient keeps addresses private.
	for _, r := range n.Recipients {
		p := sgmail.NewPersonalization()
		p.AddTos(sgmail.NewEmail(r.Name, r.Email))
		msg.AddPersonalizations(p)
	}
	msg.AddContent(
		sgmail.NewContent("text/plain", n.Text),
		sgmail.NewContent("text/html", n.HTML),
	)
	return msg
}

func (m *SendGridMailer) Send(ctx context.Context, n Notification) error {
	req := sendgrid.GetRequest(m.key, m.endpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(n))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
