package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is a single outbound transactional email.
type Message struct {
	FromName string
	FromAddr string
	ToName   string
	ToAddr   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers transactional emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridMailer delivers messages through the SendGrid v3 API.
type SendgridMailer struct {
	key           string
	subjectPrefix string
	logger        *zap.Logger
}

// NewSendgridMailer constructs a SendGrid-backed mailer.
func NewSendgridMailer(apiKey, subjectPrefix string, logger *zap.Logger) *SendgridMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendgridMailer{key: apiKey, subjectPrefix: subjectPrefix, logger: logger}
}

// Send delivers a single message. The caller decides whether failures matter.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(msg.FromName, msg.FromAddr)
	to := sgmail.NewEmail(msg.ToName, msg.ToAddr)
	text := msg.TextBody
	if text == "" {
		text = msg.Subject
	}
	mail := sgmail.NewSingleEmail(from, m.subjectPrefix+msg.Subject, to, text, msg.HTMLBody)

	req := sendgrid.GetRequest(m.key, "/v3/mail/send", "https://api.sendgrid.com")
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(mail)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// ConsoleMailer logs messages instead of delivering them. Used in development.
type ConsoleMailer struct {
	logger *zap.Logger
}

// NewConsoleMailer constructs a console mailer.
func NewConsoleMailer(logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{logger: logger}
}

// Send writes the message to the application log.
func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	m.logger.Sugar().Infow("email (console)",
		"from", msg.FromAddr,
		"to", msg.ToAddr,
		"subject", msg.Subject,
		"text", msg.TextBody,
	)
	return nil
}
