package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/kaban-cli/kaban/internal/config"
	"github.com/kaban-cli/kaban/internal/models"
)

// ErrNotFound means neither data file exists. Callers usually treat it as
// an empty store.
var ErrNotFound = errors.New("no kaban data file found")

// Loader reads and writes the task data file under a kaban directory.
type Loader struct {
	paths  config.Paths
	format config.Format
	logger *slog.Logger
}

func New(paths config.Paths, format config.Format, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{paths: paths, format: format, logger: logger}
}

// Path is the file Save writes.
func (l *Loader) Path() string {
	return l.paths.DataFile(l.format)
}

// Exists reports whether a data file exists in either format.
func (l *Loader) Exists() bool {
	_, _, ok := l.locate()
	return ok
}

func (l *Loader) locate() (string, config.Format, bool) {
	for _, format := range []config.Format{l.format, l.format.Other()} {
		path := l.paths.DataFile(format)
		if config.FileExists(path) {
			return path, format, true
		}
	}
	return "", "", false
}

// Load reads the configured format's file, falling back to the other
// format's file. Skipped entries are logged as warnings.
func (l *Loader) Load() (*models.TaskStore, error) {
	path, format, ok := l.locate()
	if !ok {
		return models.NewTaskStore(), fmt.Errorf("%w in %s", ErrNotFound, l.paths.Dir)
	}
	if format != l.format {
		l.logger.Debug("reading data file in fallback format", "path", path, "format", format)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := Decode(raw, format)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.Path = path
		}
		return nil, err
	}
	for _, diagnostic := range multierr.Errors(doc.Diagnostics) {
		l.logger.Warn("data file entry", "path", path, "problem", diagnostic.Error())
	}
	return doc.Store, nil
}

// Save writes store in the configured format via a temp file and rename.
func (l *Loader) Save(store *models.TaskStore) error {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create kaban directory: %w", err)
	}
	data, err := Encode(store, l.format)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	l.logger.Debug("saved data file", "path", path, "tasks", store.TaskCount(), "bags", len(store.Bags))
	return nil
}
