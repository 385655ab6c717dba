// Package changelog persists glossary change records to a dated append-only
// log, one file per calendar day. Entries are written only when correction
// actually changed the text; they are the raw material for tuning the rule
// sets between sessions.
package changelog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rvasily/squadvoice/pkg/logger"
)

// Record is one glossary correction event.
type Record struct {
	Channel   string    // "game", "mic"
	LangPair  string    // "ru->en"
	Source    string    // source-language transcript
	Raw       string    // translation before correction
	Fixed     string    // translation after correction
	Timestamp time.Time
}

// Logger appends records to translation_logs/translations_<YYYY-MM-DD>.log.
// Each Append is a single O_APPEND write, so concurrent writers from both
// channels cannot interleave within an entry.
type Logger struct {
	dir string
	log *logger.Logger
	mu  sync.Mutex
	now func() time.Time
}

// New creates the change logger, creating dir if needed.
func New(dir string, log *logger.Logger) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create change log dir %s: %w", dir, err)
	}
	return &Logger{
		dir: dir,
		log: log.Named("changelog"),
		now: time.Now,
	}, nil
}

// Append writes one record to today's log file.
func (l *Logger) Append(rec Record) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}

	entry := fmt.Sprintf("[%s] [%s %s]\nSource: %s\nRaw:    %s\nFixed:  %s\n\n",
		ts.Format("2006-01-02 15:04:05"),
		rec.Channel, rec.LangPair,
		rec.Source, rec.Raw, rec.Fixed)

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.pathFor(l.now())
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open change log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to append change log entry: %w", err)
	}
	return nil
}

// pathFor returns the log file path for the given day.
func (l *Logger) pathFor(t time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("translations_%s.log", t.Format("2006-01-02")))
}
