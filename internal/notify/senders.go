package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/webhook"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPTimeout bounds one delivery when the caller's context has no
// earlier deadline.
const SMTPTimeout = 15 * time.Second

// SMTPSender sends plain-text mail, upgrading the connection with STARTTLS
// when the server offers it, which Gmail on 587 does.
type SMTPSender struct {
	config SMTPConfig
	send   func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now    func() time.Time
}

func NewSMTPSender(config SMTPConfig) (*SMTPSender, error) {
	if config.Username == "" || config.Password == "" {
		return nil, fmt.Errorf("email credentials not set")
	}
	if config.From == "" {
		config.From = config.Username
	}
	return &SMTPSender{config: config, send: sendMail, now: time.Now}, nil
}

func (s *SMTPSender) Channel() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	return s.send(ctx, addr, auth, s.config.From, []string{msg.To}, s.render(msg))
}

// sendMail is smtp.SendMail bound to ctx: the dial honours it, and the
// connection is closed as soon as ctx ends or SMTPTimeout passes.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, SMTPTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTPSender) render(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// WebhookSender posts the notification as a signed "attendance.notification"
// event for an external gateway to deliver.
type WebhookSender struct {
	client *webhook.Client
}

func NewWebhookSender(client *webhook.Client) *WebhookSender {
	return &WebhookSender{client: client}
}

func (w *WebhookSender) Channel() string { return "webhook" }

type notificationPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	RegNo   string `json:"reg_no"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Date    string `json:"date"`
}

func (w *WebhookSender) Send(ctx context.Context, msg Message) error {
	return w.client.Send(ctx, "attendance.notification", notificationPayload{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
		RegNo:   msg.Identity.RegNo,
		Name:    msg.Identity.Name,
		Status:  string(msg.Status),
		Date:    msg.Date,
	})
}

// LogSender only logs the message. Useful in development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Channel() string { return "log" }

func (l *LogSender) Send(_ context.Context, msg Message) error {
	l.logger.Info("notification",
		"to", msg.To,
		"subject", msg.Subject,
		"reg_no", msg.Identity.RegNo,
		"status", msg.Status,
	)
	return nil
}

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*WebhookSender)(nil)
	_ Sender = (*LogSender)(nil)
)
