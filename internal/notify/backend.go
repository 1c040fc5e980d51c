package notify

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Backend selects a Mailer by name: log, smtp or sendgrid.
type Backend struct {
	Kind        string
	SMTP        SMTPConfig
	SendGridKey string
}

// Mailer builds the configured mailer.
func (b Backend) Mailer(log zerolog.Logger) (Mailer, error) {
	switch strings.ToLower(b.Kind) {
	case "", "log":
		return NewLogMailer(log), nil
	case "smtp":
		if b.SMTP.Host == "" {
			return nil, fmt.Errorf("smtp mailer: host not set")
		}
		return NewSMTPMailer(b.SMTP), nil
	case "sendgrid":
		if b.SendGridKey == "" {
			return nil, fmt.Errorf("sendgrid mailer: api key not set")
		}
		return NewSendGridMailer(b.SendGridKey, b.SMTP.FromName, b.SMTP.FromEmail), nil
	default:
		return nil, fmt.Errorf("unknown mail backend %q", b.Kind)
	}
}
