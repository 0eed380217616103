// Package mail builds and sends the "note created" notification email.
//
// Dispatch is never on the critical path for note durability: every transport
// error is converted into a failed Result, and the caller records the
// outcome on the note without failing the request.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Result is the outcome of a single dispatch attempt.
type Result struct {
	Success    bool
	MessageID  string
	PreviewURL string
	Err        error
}

// Dispatcher sends the note-created notification. Implementations must not
// return errors past their boundary; failures are reported via Result.Err.
type Dispatcher interface {
	NotifyCreated(ctx context.Context, recipient, noteText, noteID string, createdAt time.Time) Result
}

const fromAddr = `"LeadNotes" <noreply@leadnotes.com>`

const subject = "Your note has been created"

var htmlTmpl = template.Must(template.New("note-created").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #667eea;">LeadNotes — note created successfully</h2>
  <div style="background: #f9f9f9; padding: 20px; border-radius: 8px; border-left: 4px solid #667eea;">
    <p style="font-size: 16px; color: #555;"><strong>{{.Text}}</strong></p>
    <p style="font-size: 12px; color: #999;">
      Note ID: {{.ID}}<br/>
      Created at: {{.CreatedAt}}
    </p>
  </div>
  <p style="color: #666;">Your note has been saved. You can access it anytime by logging into your account.</p>
</div>
`))

// failed wraps an error into a failure Result.
func failed(err error) Result {
	return Result{Success: false, Err: err}
}

// buildMessage renders the fixed HTML+plaintext template into a message
// addressed to the recipient.
func buildMessage(from, recipient, noteText, noteID string, createdAt time.Time) (*gomail.Msg, error) {
	if from == "" {
		from = fromAddr
	}

	data := struct {
		Text, ID, CreatedAt string
	}{noteText, noteID, createdAt.Format(time.RFC1123)}

	var html bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("mail: render template: %w", err)
	}
	plain := fmt.Sprintf("Your note has been created:\n\n%s\n\nNote ID: %s\nCreated at: %s\n",
		noteText, noteID, data.CreatedAt)

	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("mail: from address: %w", err)
	}
	if err := m.To(recipient); err != nil {
		return nil, fmt.Errorf("mail: to address: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(gomail.TypeTextPlain, plain)
	m.AddAlternativeString(gomail.TypeTextHTML, html.String())
	return m, nil
}

func logResult(logger *slog.Logger, transport string, res Result) {
	if res.Success {
		logger.Info("notification dispatched",
			slog.String("transport", transport),
			slog.String("message_id", res.MessageID))
		return
	}
	logger.Error("notification dispatch failed",
		slog.String("transport", transport),
		slog.String("error", res.Err.Error()))
}
