package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileDispatcher is the zero-configuration transport: it writes the rendered
// message into a spool directory and returns a file:// preview URL. It stands
// in for a real provider during local and demo operation.
type FileDispatcher struct {
	from     string
	spoolDir string
	logger   *slog.Logger
}

// NewFileDispatcher creates a dispatcher spooling into dir. An empty dir
// falls back to the OS temp directory.
func NewFileDispatcher(from, dir string, logger *slog.Logger) *FileDispatcher {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "leadnotes-mail")
	}
	return &FileDispatcher{from: from, spoolDir: dir, logger: logger}
}

// NotifyCreated renders the message and spools it to disk.
func (d *FileDispatcher) NotifyCreated(_ context.Context, recipient, noteText, noteID string, createdAt time.Time) (res Result) {
	defer func() { logResult(d.logger, "file", res) }()

	msg, err := buildMessage(d.from, recipient, noteText, noteID, createdAt)
	if err != nil {
		return failed(err)
	}
	if err := os.MkdirAll(d.spoolDir, 0o755); err != nil {
		return failed(fmt.Errorf("mail: create spool dir: %w", err))
	}

	id := uuid.NewString()
	path := filepath.Join(d.spoolDir, id+".eml")
	if err := msg.WriteToFile(path); err != nil {
		return failed(fmt.Errorf("mail: spool message: %w", err))
	}
	return Result{
		Success:    true,
		MessageID:  id,
		PreviewURL: "file://" + path,
	}
}
