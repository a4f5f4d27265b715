package commit

import (
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
)

// Totals accumulates the size of every original file queued in a run and the
// size of what each one became.
type Totals struct {
	mu       sync.Mutex
	original int64
	updated  int64
}

// AddOriginal counts a queued file's size.
func (t *Totals) AddOriginal(n int64) {
	t.mu.Lock()
	t.original += n
	t.mu.Unlock()
}

// AddNew counts the size a file ended up with (encoded or skipped).
func (t *Totals) AddNew(n int64) {
	t.mu.Lock()
	t.updated += n
	t.mu.Unlock()
}

// Summary is a consistent view of Totals.
type Summary struct {
	Original int64
	New      int64
}

// Saved is the byte difference; negative when files grew.
func (s Summary) Saved() int64 { return s.Original - s.New }

// SavedPercent is Saved relative to Original, or 0 when nothing was counted.
func (s Summary) SavedPercent() float64 {
	if s.Original <= 0 {
		return 0
	}
	return float64(s.Saved()) / float64(s.Original) * 100
}

// Summary returns the current counters.
func (t *Totals) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{Original: t.original, New: t.updated}
}

// FormatSize renders a byte count in binary units, keeping the sign.
func FormatSize(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}
