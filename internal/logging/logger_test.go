package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recoder/internal/config"
	"recoder/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestConsoleLoggerHeaderAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "batch")
	logger.Info("encode finished",
		logging.Int(logging.FieldSlot, 1),
		logging.String(logging.FieldEncoder, "libx265"),
		logging.String(logging.FieldFile, "/media/a.mkv"),
		logging.Int64("saved_bytes", 2048),
		logging.String(logging.FieldJobID, "hidden-at-info"),
	)

	content := readFile(t, logPath)
	if !strings.Contains(content, "INFO [batch] Slot 1 · libx265 – encode finished") {
		t.Fatalf("unexpected header: %q", content)
	}
	if !strings.Contains(content, "- File: /media/a.mkv") {
		t.Fatalf("expected file field, got %q", content)
	}
	if !strings.Contains(content, "- Saved Bytes: 2.0 KiB") {
		t.Fatalf("expected humanized size, got %q", content)
	}
	if strings.Contains(content, "hidden-at-info") {
		t.Fatalf("job id should be debug-only, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("info logs should not carry source, got %q", content)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithTask(context.Background(), "task-1")
	ctx = logging.WithSlot(ctx, 0, "hevc_nvenc")
	logging.WithContext(ctx, logger).Info("queued")

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readFile(t, logPath))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["task_id"] != "task-1" || record["encoder"] != "hevc_nvenc" {
		t.Fatalf("missing context fields: %v", record)
	}
	if record["slot"] != float64(0) {
		t.Fatalf("unexpected slot: %v", record["slot"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "notify failed", "notification_failed", logging.String(logging.FieldImpact, "no push"))

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readFile(t, logPath))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldEventType] != "notification_failed" {
		t.Fatalf("unexpected event type: %v", record)
	}
	if record[logging.FieldImpact] != "no push" {
		t.Fatalf("explicit impact should be preserved: %v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default error hint: %v", record)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
