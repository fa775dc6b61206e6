package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nki-one/quoteintake/internal/attachment"
	"github.com/nki-one/quoteintake/internal/mailer"
	"github.com/nki-one/quoteintake/internal/quotelog"
	"github.com/nki-one/quoteintake/internal/sse"
)

// Submission is a validated quote request as accepted by the HTTP layer.
type Submission struct {
	Name        string
	Company     string
	Email       string
	Phone       string
	Service     string
	Message     string
	Attachments []attachment.Input
}

// Result reports a successful submission back to the caller.
type Result struct {
	MessageID string
	Preview   string
}

// Service orchestrates one submission: attachment routing, mail delivery,
// then exactly one log entry recording the outcome. Entries are never
// written speculatively before the mail attempt resolves.
type Service struct {
	router    *attachment.Router
	transport mailer.Transport
	store     *quotelog.Store
	hub       *sse.Hub
	from      string
	salesTo   string
	logger    *slog.Logger
}

func NewService(router *attachment.Router, transport mailer.Transport, store *quotelog.Store, hub *sse.Hub, from, salesTo string, logger *slog.Logger) *Service {
	return &Service{
		router:    router,
		transport: transport,
		store:     store,
		hub:       hub,
		from:      from,
		salesTo:   salesTo,
		logger:    logger,
	}
}

// Submit sends the quote mail and logs the attempt. A log write failure is
// logged to the operational channel and swallowed; it never masks the mail
// outcome from the caller.
func (s *Service) Submit(ctx context.Context, sub Submission) (Result, error) {
	attached, links := s.router.Route(ctx, sub.Attachments)

	msg := mailer.Message{
		From:        s.from,
		ReplyTo:     fmt.Sprintf("%s <%s>", sub.Name, sub.Email),
		To:          s.salesTo,
		Subject:     buildSubject(sub),
		Text:        renderText(sub),
		HTML:        renderHTML(sub) + links,
		Attachments: attached,
	}
	receipt, sendErr := s.transport.Send(ctx, msg)

	entry := quotelog.Entry{
		Name:    sub.Name,
		Company: sub.Company,
		Email:   sub.Email,
		Phone:   sub.Phone,
		Service: sub.Service,
		Message: sub.Message,
		To:      s.salesTo,
		Sent:    sendErr == nil,
	}
	if sendErr == nil {
		entry.Info = map[string]string{"messageId": receipt.MessageID}
	} else {
		entry.Info = map[string]string{"error": sendErr.Error()}
	}

	logged, logErr := s.store.Append(entry)
	if logErr != nil {
		s.logger.Error("quote log write failed", "error", logErr, "sent", entry.Sent)
	} else {
		s.logger.Info("quote logged", "id", logged.ID, "sent", logged.Sent)
		s.broadcast(logged)
	}

	if sendErr != nil {
		return Result{}, sendErr
	}
	return Result{MessageID: receipt.MessageID, Preview: receipt.Preview}, nil
}

func (s *Service) broadcast(entry quotelog.Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	s.hub.Broadcast([]byte(fmt.Sprintf("event: entry\ndata: %s\n\n", data)))
}
