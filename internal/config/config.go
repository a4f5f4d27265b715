package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and binary location configuration.
type Paths struct {
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Encoding contains the run-wide encode parameters.
type Encoding struct {
	// Quality is the 0-51 quality level; lower is better.
	Quality int `toml:"quality"`
	// Preset indexes each profile's preset label list.
	Preset     int      `toml:"preset"`
	Reencode   bool     `toml:"reencode"`
	Encoders   []string `toml:"encoders"`
	Extensions []string `toml:"extensions"`
}

// Benchmark contains capability probe settings.
type Benchmark struct {
	MaxAgeHours  int    `toml:"max_age_hours"`
	ProbeSeconds int    `toml:"probe_seconds"`
	Resolution   string `toml:"resolution"`
}

// Scheduler contains worker loop timing.
type Scheduler struct {
	TickMillis       int `toml:"tick_millis"`
	DrainTicks       int `toml:"drain_ticks"`
	SettleSeconds    int `toml:"settle_seconds"`
	KillGraceSeconds int `toml:"kill_grace_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Task           bool   `toml:"task"`
	Run            bool   `toml:"run"`
	TaskTemplate   string `toml:"task_template"`
	RunTemplate    string `toml:"run_template"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for recoder.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and ffmpeg/ffprobe locations
//   - Encoding: quality, preset, re-encode policy, encoder and extension filters
//   - Benchmark: capability probe cache freshness and probe source shape
//   - Scheduler: tick interval, drain debounce, settle and kill grace delays
//   - Notifications: ntfy push notification settings and message templates
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Encoding      Encoding      `toml:"encoding"`
	Benchmark     Benchmark     `toml:"benchmark"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recoder.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BenchmarkCachePath returns the location of the encoder benchmark cache.
func (c *Config) BenchmarkCachePath() string {
	return filepath.Join(c.Paths.StateDir, "benchmarks.json")
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "recoder.lock")
}

// BenchmarkMaxAge returns the freshness window for cached benchmark results.
func (c *Config) BenchmarkMaxAge() time.Duration {
	return time.Duration(c.Benchmark.MaxAgeHours) * time.Hour
}

// TickInterval returns the scheduler tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Scheduler.TickMillis) * time.Millisecond
}

// SettleDelay returns the pause between a finished encode and the file swap.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Scheduler.SettleSeconds) * time.Second
}

// KillGrace returns how long a cancelled subprocess group gets between SIGTERM and SIGKILL.
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.Scheduler.KillGraceSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
