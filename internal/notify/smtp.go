package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SMTPTransport struct {
	cfg     SMTPConfig
	timeout time.Duration
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, timeout: 15 * time.Second}
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	raw, err := composeMIME(t.cfg.From, t.cfg.FromName, msg, time.Now())
	if err != nil {
		return err
	}
	client, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if t.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := client.Mail(t.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

// Probe connects and negotiates TLS without sending anything. The serve
// command runs it at startup and only logs the outcome.
func (t *SMTPTransport) Probe(ctx context.Context) error {
	client, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Quit()
}

// dial opens a session: implicit TLS on 465, STARTTLS elsewhere when offered.
func (t *SMTPTransport) dial(ctx context.Context) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: t.timeout}
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	tlsCfg := &tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(t.timeout))
	}
	if t.cfg.Port == 465 {
		conn = tls.Client(conn, tlsCfg)
	}
	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if t.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				_ = client.Close()
				return nil, err
			}
		}
	}
	return client, nil
}

// composeMIME renders msg as a multipart/alternative message.
func composeMIME(from, fromName string, msg Message, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Name: fromName, Address: from}})
	h.SetAddressList("To", []*mail.Address{{Name: msg.ToName, Address: msg.To}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	alt, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	parts := []struct{ ctype, body string }{
		{"text/plain", msg.Text},
		{"text/html", msg.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		var ph mail.InlineHeader
		ph.SetContentType(p.ctype, map[string]string{"charset": "utf-8"})
		w, err := alt.CreatePart(ph)
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
