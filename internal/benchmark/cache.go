package benchmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"recoder/internal/logging"
)

// Result is the outcome of probing one encoder profile.
type Result struct {
	Profile    string    `json:"profile"`
	Speed      float64   `json:"speed"`
	Failed     bool      `json:"failed"`
	MeasuredAt time.Time `json:"measured_at"`
}

// Reusable reports whether the result can stand in for a new probe.
func (r Result) Reusable(now time.Time, maxAge time.Duration) bool {
	if r.Failed || r.MeasuredAt.IsZero() {
		return false
	}
	return now.Sub(r.MeasuredAt) < maxAge
}

// Cache provides thread-safe access to the persisted benchmark results.
type Cache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Result
}

// NewCache loads the cache at path. A missing or unreadable file yields an
// empty cache. If path is empty, nothing is ever persisted.
func NewCache(path string, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "benchmark_cache")
	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]Result),
	}
	if path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load benchmark cache", "benchmark_cache_load_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "delete the file if it keeps failing"),
			logging.String(logging.FieldImpact, "every encoder will be benchmarked again"))
	}
	return c
}

// Lookup returns the cached result for profile.
func (c *Cache) Lookup(profile string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[strings.TrimSpace(profile)]
	return entry, ok
}

// List returns all cached results sorted by profile name.
func (c *Cache) List() []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Result, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Profile < out[j].Profile })
	return out
}

// Update stores results over the cached entries and persists the whole set.
// Entries for profiles absent from results are kept as they are.
func (c *Cache) Update(results []Result) error {
	for _, r := range results {
		if strings.TrimSpace(r.Profile) == "" {
			return errors.New("benchmark result without profile")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make(map[string]Result, len(c.entries)+len(results))
	for profile, entry := range c.entries {
		entries[profile] = entry
	}
	for _, r := range results {
		entries[r.Profile] = r
	}
	c.entries = entries
	if c.path == "" {
		return nil
	}
	if err := c.save(); err != nil {
		return fmt.Errorf("persist benchmark cache: %w", err)
	}
	c.logger.Debug("benchmark cache written",
		logging.Int("entry_count", len(entries)),
		logging.Int("updated", len(results)),
		logging.String("path", c.path))
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries map[string]Result
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	for key, entry := range entries {
		if strings.TrimSpace(key) == "" {
			continue
		}
		entry.Profile = key
		c.entries[key] = entry
	}
	c.logger.Debug("loaded benchmark cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

// save writes the cache as a JSON object keyed by profile.
func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := renameio.WriteFile(c.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}
