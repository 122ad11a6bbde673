package mail

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends plain-text mail through an SMTP relay.
type SMTPNotifier struct {
	addr     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

func NewSMTPNotifier(cfg Config) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPNotifier{
		addr:     net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort),
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// Send delivers one message to all recipients. net/smtp has no context support,
// so ctx is only checked before dialing.
func (n *SMTPNotifier) Send(ctx context.Context, subject, body, from string, to []string) error {
	if len(to) == 0 {
		return errors.New("mail: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := buildMessage(subject, body, from, to, time.Now())
	if err != nil {
		return err
	}
	if err := n.sendMail(n.addr, n.auth, from, to, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", n.addr, err)
	}
	return nil
}

// buildMessage renders an RFC 5322 text/plain message.
func buildMessage(subject, body, from string, to []string, date time.Time) ([]byte, error) {
	for _, v := range append([]string{subject, from}, to...) {
		if strings.ContainsAny(v, "\r\n") {
			return nil, errors.New("mail: header value contains a line break")
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String()), nil
}
