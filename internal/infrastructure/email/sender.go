package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"device-fleet-manager/internal/config"
	"device-fleet-manager/internal/logger"

	"go.uber.org/zap"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender sends over implicit TLS (port 465) or STARTTLS on other ports.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.User,
		password: cfg.Password,
		from:     from,
	}
}

func (s *SMTPSender) From() string {
	return s.from
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := buildMessage(s.from, to, subject, htmlBody)
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	tlsConfig := &tls.Config{ServerName: s.host}

	dialer := &net.Dialer{}
	var conn net.Conn
	var err error
	if s.port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if s.port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if s.username != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body,
	)
}

// LogSender logs instead of sending. Used when SMTP_HOST is empty.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender() *LogSender {
	return &LogSender{log: logger.Named("email")}
}

func (s *LogSender) From() string {
	return "noreply@localhost"
}

func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.log.Info("Email",
		zap.String("recipient", to),
		zap.String("subject", subject),
		logger.Event("email_logged"),
	)
	return nil
}
