package commit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// JournalFileName collects one line per committed encode.
	JournalFileName = "encode.log"
	// ErrorJournalFileName collects swaps that need manual attention.
	ErrorJournalFileName = "errors.log"
)

var bytePrinter = message.NewPrinter(language.English)

// Journal appends timestamped lines to a plain-text file.
type Journal struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewJournal returns a Journal at path. An empty path discards lines.
func NewJournal(path string) *Journal {
	return &Journal{path: path, now: time.Now}
}

// Path reports where lines are written.
func (j *Journal) Path() string { return j.path }

// Append writes one line.
func (j *Journal) Append(line string) error {
	if j == nil || j.path == "" {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("ensure journal directory: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	stamp := j.now().Format(time.RFC3339)
	if _, err := fmt.Fprintf(f, "%s %s\n", stamp, strings.TrimSpace(line)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write journal: %w", err)
	}
	return f.Close()
}

// DeltaLine describes the size change of one file for the encode journal.
func DeltaLine(path string, original, updated int64, encoder string, quality, preset int) string {
	s := Summary{Original: original, New: updated}
	return bytePrinter.Sprintf("%s: %s -> %s (saved %s, %s%%) [%d -> %d bytes] %s q%d p%d",
		path,
		FormatSize(original), FormatSize(updated),
		FormatSize(s.Saved()), FormatPercent(s.SavedPercent()),
		original, updated,
		encoder, quality, preset)
}
