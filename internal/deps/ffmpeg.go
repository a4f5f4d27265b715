package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Tools holds the resolved transcoding binaries.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// ResolveTools locates ffmpeg and ffprobe. A configured value wins; otherwise a
// binary in a bin/ directory next to the recoder executable is preferred, then
// PATH. Unresolved names are returned as-is so CheckBinaries can report them.
func ResolveTools(ffmpegOverride, ffprobeOverride string) Tools {
	binDir := executableBinDir()
	return Tools{
		FFmpeg:  resolveTool("ffmpeg", ffmpegOverride, binDir),
		FFprobe: resolveTool("ffprobe", ffprobeOverride, binDir),
	}
}

// Requirements describes the tools as dependency requirements.
func (t Tools) Requirements() []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: t.FFmpeg, Description: "Runs benchmarks and encodes"},
		{Name: "FFprobe", Command: t.FFprobe, Description: "Reads completion markers from container metadata"},
	}
}

func resolveTool(name, override, binDir string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	if binDir != "" {
		candidate := filepath.Join(binDir, executableName(name))
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate
		}
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}

func executableBinDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "bin")
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
