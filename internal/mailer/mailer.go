// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailer delivers outbound email and runs the subscriber
// notification queue.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

// Message is a single HTML email to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// TLS modes for SMTPConfig.TLS.
const (
	TLSStartTLS = "starttls" // plain connect, then a required STARTTLS upgrade
	TLSImplicit = "tls"      // TLS from the first byte (port 465)
	TLSNone     = "none"     // no encryption; local relays only
)

const dialTimeout = 10 * time.Second

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
	// TLS is one of TLSStartTLS, TLSImplicit or TLSNone. Empty means
	// TLSStartTLS.
	TLS string
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.TLS == "" {
		cfg.TLS = TLSStartTLS
	}
	return &SMTPMailer{cfg: cfg}
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", m.cfg.Addr, err)
	}
	defer func() { _ = c.Close() }()

	if m.cfg.Username != "" {
		if err := c.Auth(m.authClient(c)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	body := buildMessage(m.cfg.From, msg, time.Now())
	if err := c.SendMail(m.cfg.From, []string{msg.To}, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("sending to %s: %w", msg.To, err)
	}
	return c.Quit()
}

// dial connects and negotiates TLS according to the configured mode.
func (m *SMTPMailer) dial(ctx context.Context) (*smtp.Client, error) {
	host, _, err := net.SplitHostPort(m.cfg.Addr)
	if err != nil {
		return nil, err
	}
	tlsCfg := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: dialTimeout}

	var conn net.Conn
	if m.cfg.TLS == TLSImplicit {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", m.cfg.Addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", m.cfg.Addr)
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	switch m.cfg.TLS {
	case TLSStartTLS:
		// NewClientStartTLS closes conn on failure.
		return smtp.NewClientStartTLS(conn, tlsCfg)
	case TLSImplicit, TLSNone:
		return smtp.NewClient(conn), nil
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("unknown smtp tls mode %q", m.cfg.TLS)
	}
}

// authClient prefers PLAIN and falls back to LOGIN for relays that only
// offer the older mechanism.
func (m *SMTPMailer) authClient(c *smtp.Client) sasl.Client {
	if !c.SupportsAuth(sasl.Plain) && c.SupportsAuth("LOGIN") {
		return sasl.NewLoginClient(m.cfg.Username, m.cfg.Password)
	}
	return sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
}

// LogMailer logs messages instead of sending them. It is used in development
// and whenever SMTP is not configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email (not sent, SMTP disabled)", "to", msg.To, "subject", msg.Subject, "bytes", len(msg.HTML))
	return nil
}

func buildMessage(from string, msg Message, now time.Time) []byte {
	domain := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 {
		domain = strings.Trim(from[i+1:], "> ")
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domain)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.HTML, "\n", "\r\n"))
	return b.Bytes()
}
