package publisher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionLog is a plain-text record of one publishing run. A nil SessionLog
// discards everything.
type SessionLog struct {
	path string
	mu   sync.Mutex
}

// OpenSessionLog creates dir if needed and starts a fresh log for runID.
func OpenSessionLog(dir, runID string) (*SessionLog, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	l := &SessionLog{path: filepath.Join(dir, fmt.Sprintf("publish_%s.log", runID))}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := fmt.Sprintf("=== Publish Log ===\nRun: %s\nStarted: %s\n\n",
		runID, time.Now().Format("2006-01-02 15:04:05"))
	if _, err := f.WriteString(header); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the log file location.
func (l *SessionLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *SessionLog) append(prefix, msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Error().Err(err).Str("path", l.path).Msg("failed to write session log")
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("15:04:05")
	fmt.Fprintf(f, "[%s] %s %s\n", timestamp, prefix, msg)
}

// Select logs a target selection.
func (l *SessionLog) Select(format string, args ...any) {
	l.append("SELECT", fmt.Sprintf(format, args...))
}

// Save logs a saved composite image.
func (l *SessionLog) Save(format string, args ...any) {
	l.append("SAVE  ", fmt.Sprintf(format, args...))
}

// Upload logs a catalog upload outcome.
func (l *SessionLog) Upload(format string, args ...any) {
	l.append("UPLOAD", fmt.Sprintf(format, args...))
}

// Error logs a per-item failure.
func (l *SessionLog) Error(format string, args ...any) {
	l.append("ERROR ", fmt.Sprintf(format, args...))
}

// Done logs the end of the run.
func (l *SessionLog) Done(format string, args ...any) {
	l.append("DONE  ", fmt.Sprintf(format, args...))
}
