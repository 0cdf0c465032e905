package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"

	"power_alert/internal/model"
)

// ErrNoStartTLS is returned when the submission server does not offer STARTTLS.
var ErrNoStartTLS = errors.New("smtp server does not support STARTTLS")

// Submitter hands a composed message to a mail server.
type Submitter interface {
	Submit(ctx context.Context, from string, to []string, msg []byte) error
}

// Email sends one message per notification with every recipient in a single To header.
type Email struct {
	from      string
	submitter Submitter
	now       func() time.Time
}

// NewEmail creates an Email notifier.
func NewEmail(from string, submitter Submitter) *Email {
	return &Email{
		from:      from,
		submitter: submitter,
		now:       time.Now,
	}
}

// Notify implements Notifier.
func (e *Email) Notify(ctx context.Context, n model.Notification) error {
	if len(n.Recipients) == 0 {
		return errors.New("email: no recipients")
	}
	msg, err := e.compose(n)
	if err != nil {
		return fmt.Errorf("compose email: %w", err)
	}
	if err := e.submitter.Submit(ctx, e.from, n.Recipients, msg); err != nil {
		return fmt.Errorf("submit email: %w", err)
	}
	return nil
}

func (e *Email) compose(n model.Notification) ([]byte, error) {
	var h mail.Header
	h.SetDate(e.now())
	h.SetAddressList("From", []*mail.Address{{Address: e.from}})
	to := make([]*mail.Address, 0, len(n.Recipients))
	for _, r := range n.Recipients {
		to = append(to, &mail.Address{Address: r})
	}
	h.SetAddressList("To", to)
	h.SetSubject(n.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}
	if _, err := io.WriteString(w, n.Body); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// SMTPSubmitter submits mail over SMTP with mandatory STARTTLS and PLAIN auth.
type SMTPSubmitter struct {
	Addr     string
	Host     string
	Username string
	Password string
	Timeout  time.Duration
}

// Submit implements Submitter.
func (s *SMTPSubmitter) Submit(ctx context.Context, from string, to []string, msg []byte) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.Addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return ErrNoStartTLS
	}
	if err := c.StartTLS(&tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return c.Quit()
}
