package internal

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	pkgconfig "github.com/leadnotes/leadnotes/pkg/config"
)

// WatchConfig watches the config file and applies the log level from each
// valid rewrite to level. Only the log level is dynamic; other settings
// require a restart. Returns when ctx is cancelled.
func WatchConfig(ctx context.Context, path string, level *slog.LevelVar, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file on save, which would
	// otherwise drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if evAbs, err := filepath.Abs(event.Name); err != nil || evAbs != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg := NewDefaultConfig()
			if err := pkgconfig.Load(path, cfg); err != nil {
				logger.Warn("config reload skipped", slog.String("error", err.Error()))
				continue
			}
			if cfg.App.LogLevel != level.Level() {
				logger.Info("log level changed",
					slog.String("from", level.Level().String()),
					slog.String("to", cfg.App.LogLevel.String()))
				level.Set(cfg.App.LogLevel)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", slog.String("error", err.Error()))
		}
	}
}
