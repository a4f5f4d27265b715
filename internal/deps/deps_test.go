package deps

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	present := filepath.Join(t.TempDir(), "present")
	writeStub(t, present)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Empty", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for empty command: %q", results[2].Detail)
	}
}

func TestRequireAll(t *testing.T) {
	ok := []Status{{Name: "FFmpeg", Available: true}, {Name: "Extra", Optional: true}}
	if err := RequireAll(ok); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	err := RequireAll([]Status{{Name: "FFprobe", Detail: `binary "ffprobe" not found`}})
	if !errors.Is(err, ErrMissingBinary) {
		t.Fatalf("expected ErrMissingBinary, got %v", err)
	}
	if !strings.Contains(err.Error(), "FFprobe") {
		t.Fatalf("expected missing name in error, got %v", err)
	}
}

func TestResolveToolPrefersOverride(t *testing.T) {
	if got := resolveTool("ffmpeg", " /opt/ffmpeg ", t.TempDir()); got != "/opt/ffmpeg" {
		t.Fatalf("expected override, got %q", got)
	}
}

func TestResolveToolPrefersBinDir(t *testing.T) {
	binDir := t.TempDir()
	candidate := filepath.Join(binDir, executableName("ffmpeg"))
	writeStub(t, candidate)
	t.Setenv("PATH", "")

	if got := resolveTool("ffmpeg", "", binDir); got != candidate {
		t.Fatalf("expected bin dir candidate %q, got %q", candidate, got)
	}
}

func TestResolveToolFallsBackToPath(t *testing.T) {
	pathDir := t.TempDir()
	onPath := filepath.Join(pathDir, executableName("ffprobe"))
	writeStub(t, onPath)
	t.Setenv("PATH", pathDir)

	if got := resolveTool("ffprobe", "", t.TempDir()); got != onPath {
		t.Fatalf("expected PATH lookup %q, got %q", onPath, got)
	}
}

func TestResolveToolReturnsBareNameWhenMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if got := resolveTool("ffmpeg", "", ""); got != "ffmpeg" {
		t.Fatalf("expected bare name, got %q", got)
	}
}
