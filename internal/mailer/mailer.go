package mailer

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/logger"
)

// Message is a plain-text email.
type Message struct {
	To      mail.Address
	Subject string
	Text    string
}

// Sender delivers email synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const endpoint = "/v3/mail/send"

// Sendgrid sends through the SendGrid v3 API.
type Sendgrid struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

var _ Sender = (*Sendgrid)(nil)

func NewSendgrid(key, fromName, fromAddress string) *Sendgrid {
	return &Sendgrid{
		key:        key,
		host:       "https://api.sendgrid.com",
		from:       sgmail.NewEmail(fromName, fromAddress),
		subjPrefix: "[" + fromName + "] ",
	}
}

func (s *Sendgrid) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	return m
}

func (s *Sendgrid) Send(ctx context.Context, msg Message) error {
	req := sendgrid.GetRequest(s.key, endpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return apperrors.Gateway("failed to build email request", err)
	}
	raw, err := rest.DefaultClient.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return apperrors.Gateway("failed to send email", err)
	}
	res, err := rest.BuildResponse(raw)
	if err != nil {
		return apperrors.Gateway("failed to read email response", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return apperrors.Gateway("failed to send email", fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body))
	}
	return nil
}

// Console logs messages instead of sending them and keeps a copy for inspection.
type Console struct {
	mu   sync.Mutex
	sent []Message
	log  zerolog.Logger
}

var _ Sender = (*Console)(nil)

func NewConsole() *Console {
	return &Console{log: logger.With("mailer")}
}

func (c *Console) Send(_ context.Context, msg Message) error {
	c.log.Info().
		Str("to", msg.To.String()).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("email (console)")
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return nil
}

// Sent returns the messages delivered so far.
func (c *Console) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}
