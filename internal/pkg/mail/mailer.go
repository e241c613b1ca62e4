/*
Package mail delivers invite emails over SMTP.

A Mailer built from settings without a host is disabled: Send returns ErrDisabled so
callers can fall back to simulated delivery.
*/
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strings"
	"time"
)

// ErrDisabled signals that no SMTP transport is configured.
var ErrDisabled = errors.New("mail: delivery disabled")

const defaultTimeout = 10 * time.Second

// Message is one outbound plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer sends email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Settings configures the SMTP transport.
type Settings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// ImplicitTLS dials with TLS directly (port 465 style) instead of STARTTLS.
	ImplicitTLS bool
	Timeout     time.Duration
}

// Enabled reports whether enough settings are present to attempt delivery.
func (s Settings) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type client interface {
	Mail(string) error
	Rcpt(string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
	Auth(smtp.Auth) error
}

type dialFunc func(ctx context.Context, cfg Settings) (client, error)

type smtpMailer struct {
	cfg  Settings
	dial dialFunc
}

// NewSMTPMailer validates cfg and returns a Mailer.
func NewSMTPMailer(cfg Settings) (Mailer, error) {
	if cfg.Enabled() {
		if cfg.Port <= 0 {
			return nil, errors.New("mail: port is required when host is set")
		}
		if strings.TrimSpace(cfg.From) == "" {
			return nil, errors.New("mail: from address is required when host is set")
		}
		if _, err := netmail.ParseAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("mail: invalid from address: %w", err)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &smtpMailer{cfg: cfg, dial: dialSMTP}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled() {
		return ErrDisabled
	}

	recipients := normalizeRecipients(msg.To)
	if len(recipients) == 0 {
		return errors.New("mail: at least one recipient is required")
	}
	for _, rcpt := range recipients {
		if _, err := netmail.ParseAddress(rcpt); err != nil {
			return fmt.Errorf("mail: invalid recipient %q: %w", rcpt, err)
		}
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}

	c, err := m.dial(ctx, m.cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mail: mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: rcpt to %s: %w", rcpt, err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("mail: data: %w", err)
	}
	if _, err := io.WriteString(wc, render(from, recipients, msg.Subject, msg.Body)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("mail: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("mail: close body: %w", err)
	}

	return c.Quit()
}

func dialSMTP(ctx context.Context, cfg Settings) (client, error) {
	address := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	tlsConfig := &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	var (
		conn net.Conn
		err  error
	)
	if cfg.ImplicitTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, fmt.Errorf("mail: dial %s: %w", address, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mail: handshake: %w", err)
	}

	if !cfg.ImplicitTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				_ = c.Close()
				return nil, fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}

	return c, nil
}

func normalizeRecipients(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func render(from string, to []string, subject, body string) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + headerSafe(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

func headerSafe(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
