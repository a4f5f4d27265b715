package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"recoder/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("RECODER_NTFY_TOPIC", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "recoder")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.LogDir != filepath.Join(wantState, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Encoding.Quality != 28 || cfg.Encoding.Preset != 1 {
		t.Fatalf("unexpected encode defaults: quality=%d preset=%d", cfg.Encoding.Quality, cfg.Encoding.Preset)
	}
	if cfg.Encoding.Reencode {
		t.Fatal("expected re-encode disabled by default")
	}
	if cfg.BenchmarkMaxAge() != 7*24*time.Hour {
		t.Fatalf("unexpected benchmark max age: %v", cfg.BenchmarkMaxAge())
	}
	if cfg.TickInterval() != time.Second {
		t.Fatalf("unexpected tick interval: %v", cfg.TickInterval())
	}
	if cfg.Scheduler.DrainTicks != 5 {
		t.Fatalf("unexpected drain ticks: %d", cfg.Scheduler.DrainTicks)
	}
	if cfg.BenchmarkCachePath() != filepath.Join(wantState, "benchmarks.json") {
		t.Fatalf("unexpected benchmark cache path: %q", cfg.BenchmarkCachePath())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
state_dir = "~/state"
ffmpeg_binary = "~/bin/ffmpeg"
ffprobe_binary = "ffprobe"

[encoding]
quality = 22
preset = 2
reencode = true
encoders = ["HEVC_NVENC", " libx265 ", "hevc_nvenc"]
extensions = [".MKV", "mp4"]

[notifications]
ntfy_topic = "https://ntfy.example/topic"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.FFmpegBinary != filepath.Join(tempHome, "bin", "ffmpeg") {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.Paths.FFmpegBinary)
	}
	if cfg.Paths.FFprobeBinary != "ffprobe" {
		t.Fatalf("bare binary names must not be expanded, got %q", cfg.Paths.FFprobeBinary)
	}
	if cfg.Encoding.Quality != 22 || cfg.Encoding.Preset != 2 || !cfg.Encoding.Reencode {
		t.Fatalf("unexpected encoding section: %+v", cfg.Encoding)
	}
	if strings.Join(cfg.Encoding.Encoders, ",") != "hevc_nvenc,libx265" {
		t.Fatalf("unexpected encoders: %v", cfg.Encoding.Encoders)
	}
	if strings.Join(cfg.Encoding.Extensions, ",") != "mkv,mp4" {
		t.Fatalf("unexpected extensions: %v", cfg.Encoding.Extensions)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging section: %+v", cfg.Logging)
	}
	if cfg.Notifications.TaskTemplate == "" {
		t.Fatal("expected default task template")
	}
}

func TestNtfyTopicFallsBackToEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RECODER_NTFY_TOPIC", " https://ntfy.example/env ")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/env" {
		t.Fatalf("expected env topic, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"quality too high", func(c *config.Config) { c.Encoding.Quality = 52 }, "encoding.quality"},
		{"quality negative", func(c *config.Config) { c.Encoding.Quality = -1 }, "encoding.quality"},
		{"preset negative", func(c *config.Config) { c.Encoding.Preset = -1 }, "encoding.preset"},
		{"preset past labels", func(c *config.Config) { c.Encoding.Preset = 3 }, "encoding.preset 3 is out of range for libx265"},
		{"unknown encoder", func(c *config.Config) { c.Encoding.Encoders = []string{"h264_magic"} }, "encoding.encoders"},
		{"max age", func(c *config.Config) { c.Benchmark.MaxAgeHours = 0 }, "benchmark.max_age_hours"},
		{"resolution", func(c *config.Config) { c.Benchmark.Resolution = "huge" }, "benchmark.resolution"},
		{"tick", func(c *config.Config) { c.Scheduler.TickMillis = 0 }, "scheduler.tick_millis"},
		{"drain", func(c *config.Config) { c.Scheduler.DrainTicks = 0 }, "scheduler.drain_ticks"},
		{"settle", func(c *config.Config) { c.Scheduler.SettleSeconds = -1 }, "scheduler.settle_seconds"},
		{"timeout", func(c *config.Config) { c.Notifications.RequestTimeout = 0 }, "notifications.request_timeout"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	for _, section := range []string{"paths", "encoding", "benchmark", "scheduler", "notifications", "logging"} {
		if _, ok := raw[section]; !ok {
			t.Fatalf("sample config missing [%s]", section)
		}
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q, err=%v", dir, err)
		}
	}
}
