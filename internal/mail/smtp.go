package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
)

// SMTPDispatcher sends the notification through a configured SMTP provider.
type SMTPDispatcher struct {
	from   string
	client *gomail.Client
	logger *slog.Logger
}

// NewSMTPDispatcher builds a dispatcher around an authenticated SMTP client.
func NewSMTPDispatcher(from, host string, port int, username, password string, logger *slog.Logger) (*SMTPDispatcher, error) {
	client, err := gomail.NewClient(host,
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(username),
		gomail.WithPassword(password),
	)
	if err != nil {
		return nil, fmt.Errorf("mail: smtp client: %w", err)
	}
	return &SMTPDispatcher{from: from, client: client, logger: logger}, nil
}

// NotifyCreated renders and sends the message. Transport errors surface only
// through the Result, never as a returned error.
func (d *SMTPDispatcher) NotifyCreated(ctx context.Context, recipient, noteText, noteID string, createdAt time.Time) (res Result) {
	defer func() { logResult(d.logger, "smtp", res) }()

	msg, err := buildMessage(d.from, recipient, noteText, noteID, createdAt)
	if err != nil {
		return failed(err)
	}
	id := uuid.NewString()
	msg.SetMessageIDWithValue(id)

	if err := d.client.DialAndSendWithContext(ctx, msg); err != nil {
		return failed(fmt.Errorf("mail: send: %w", err))
	}
	return Result{Success: true, MessageID: id}
}
