// Package logging builds the application logger. The terminal belongs to
// the UI, so logs go to a file as JSON.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/model"
)

// New returns a logger configured from cfg and the file it writes to. The
// caller closes the file. An empty path discards output.
func New(cfg model.LogConfig) (*log.Logger, io.Closer, error) {
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	if cfg.Path == "" {
		logger.SetOutput(io.Discard)
		return logger, io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, f, nil
}
