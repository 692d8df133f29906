package log

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// FileHook is a logrus hook writing entries to a local file.
type FileHook struct {
	fallbackLogger logrus.FieldLogger
	path           string
	levels         []logrus.Level

	mu sync.Mutex
	w  afero.File
	bw *bufio.Writer
}

// FileHookFromConfigLine returns a new FileHook configured from a line in the
// form `file=path[,level=info]`.
func FileHookFromConfigLine(fs afero.Fs, fallbackLogger logrus.FieldLogger, line string) (*FileHook, error) {
	hook := &FileHook{
		fallbackLogger: fallbackLogger,
		levels:         logrus.AllLevels,
	}

	parts := strings.SplitN(line, "=", 2)
	if parts[0] != "file" {
		return nil, fmt.Errorf("logfile configuration should be in the form `file=path-to-local-file` but is `%s`", line)
	}
	if err := hook.parseArgs(line); err != nil {
		return nil, err
	}
	if err := hook.openFile(fs); err != nil {
		return nil, err
	}

	return hook, nil
}

func (h *FileHook) parseArgs(line string) error {
	for _, token := range strings.Split(line, ",") {
		key, value, found := strings.Cut(token, "=")
		switch key {
		case "file":
			if !found || value == "" {
				return fmt.Errorf("filepath must not be empty")
			}
			h.path = value
		case "level":
			levels, err := parseLevels(value)
			if err != nil {
				return err
			}
			h.levels = levels
		default:
			return fmt.Errorf("unknown logfile config key %s", key)
		}
	}

	return nil
}

func (h *FileHook) openFile(fs afero.Fs) error {
	dir := filepath.Dir(h.path)
	if _, err := fs.Stat(dir); dir != "/" && dir != "." && os.IsNotExist(err) {
		return fmt.Errorf("provided directory '%s' does not exist", dir)
	}

	file, err := fs.OpenFile(h.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open logfile %s: %w", h.path, err)
	}

	h.w = file
	h.bw = bufio.NewWriter(file)

	return nil
}

// Fire writes the entry to the log file.
func (h *FileHook) Fire(entry *logrus.Entry) error {
	message, err := entry.Bytes()
	if err != nil {
		return fmt.Errorf("failed to get a log entry bytes: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.bw.Write(message); err != nil {
		h.fallbackLogger.Errorf("failed to write a log message to a logfile: %v", err)
	}
	return nil
}

// Levels returns configured log levels.
func (h *FileHook) Levels() []logrus.Level {
	return h.levels
}

// Close flushes buffered entries and closes the file.
func (h *FileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.bw.Flush(); err != nil {
		h.fallbackLogger.Errorf("failed to flush buffer: %v", err)
	}
	return h.w.Close()
}

var _ logrus.Hook = &FileHook{}
