package mailer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"

	"github.com/nki-one/quoteintake/internal/attachment"
)

// Message is one outbound quote notification.
type Message struct {
	From        string
	ReplyTo     string
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []attachment.Attachment
}

// Receipt reports a completed delivery. Preview points at a viewable copy
// of the message when the transport produces one; SMTP delivery leaves it
// empty.
type Receipt struct {
	MessageID string
	Preview   string
}

// Transport delivers a composed message and returns a delivery receipt.
type Transport interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// SMTP sends mail through a configured relay. Every send is bounded by a
// timeout; an expired send surfaces as a transport error.
type SMTP struct {
	dialer  *gomail.Dialer
	domain  string
	timeout time.Duration
	logger  *slog.Logger
}

func NewSMTP(host string, port int, secure bool, user, pass, domain string, timeout time.Duration, logger *slog.Logger) *SMTP {
	dialer := gomail.NewDialer(host, port, user, pass)
	dialer.SSL = secure
	return &SMTP{dialer: dialer, domain: domain, timeout: timeout, logger: logger}
}

func (s *SMTP) Send(ctx context.Context, msg Message) (Receipt, error) {
	id := newMessageID(s.domain)
	m := buildMessage(msg, id)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dialer.DialAndSend(m)
	}()
	select {
	case <-ctx.Done():
		return Receipt{}, fmt.Errorf("send mail: %w", ctx.Err())
	case err := <-errCh:
		if err != nil {
			return Receipt{}, fmt.Errorf("send mail: %w", err)
		}
	}
	s.logger.Info("mail delivered", "to", msg.To, "messageId", id)
	return Receipt{MessageID: id}, nil
}

// DryRun spools the composed message to a local .eml file instead of
// delivering it. It stands in for the real relay when no SMTP host is
// configured so local setups can still exercise the full intake path and
// inspect what would have been sent.
type DryRun struct {
	domain   string
	spoolDir string
	logger   *slog.Logger
}

func NewDryRun(domain string, logger *slog.Logger) *DryRun {
	return &DryRun{domain: domain, spoolDir: os.TempDir(), logger: logger}
}

func (d *DryRun) Send(_ context.Context, msg Message) (Receipt, error) {
	id := newMessageID(d.domain)
	receipt := Receipt{MessageID: id}
	path := filepath.Join(d.spoolDir, fmt.Sprintf("quoteintake-%d.eml", time.Now().UnixNano()))
	if err := spoolMessage(buildMessage(msg, id), path); err != nil {
		d.logger.Warn("spooling dry-run mail failed", "error", err)
	} else {
		receipt.Preview = "file://" + path
	}
	d.logger.Info("dry-run mail (no SMTP host configured)",
		"to", msg.To, "subject", msg.Subject, "attachments", len(msg.Attachments),
		"messageId", id, "preview", receipt.Preview)
	return receipt, nil
}

func spoolMessage(m *gomail.Message, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := m.WriteTo(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func buildMessage(msg Message, id string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-Id", id)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	for _, att := range msg.Attachments {
		data := att.Data
		m.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {att.ContentType}}),
		)
	}
	return m
}

func newMessageID(domain string) string {
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
