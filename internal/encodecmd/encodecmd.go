// Package encodecmd turns an encoder profile, quality settings, and a source
// path into the exact ffmpeg invocation for one encode job.
package encodecmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"recoder/internal/encoders"
	"recoder/internal/marker"
)

const (
	// TempSuffix marks an encode in progress next to its source.
	TempSuffix = "-encoded"
	// OutputExt is the container every encode produces.
	OutputExt = ".mp4"

	MinQuality = 0
	MaxQuality = 51
)

var (
	ErrInvalidQuality = errors.New("quality out of range")
	ErrInvalidPreset  = errors.New("preset level out of range")
)

// Settings are the user-chosen quality knobs shared by every slot.
type Settings struct {
	Quality int
	Preset  int
}

// Job is a fully synthesized encode.
type Job struct {
	Binary string
	Args   []string
	Source string
	// Output is the temporary file ffmpeg writes.
	Output string
	// Final is the name the output takes once committed.
	Final string
	// Command is the shell-quoted rendering of Binary and Args.
	Command string
	Tag     marker.Structured
}

// Build synthesizes the encode job. Identical inputs produce byte-identical
// Command strings.
func Build(binary string, profile encoders.Profile, settings Settings, source string) (Job, error) {
	if settings.Quality < MinQuality || settings.Quality > MaxQuality {
		return Job{}, fmt.Errorf("%w: %d not in %d..%d", ErrInvalidQuality, settings.Quality, MinQuality, MaxQuality)
	}
	presetLabel, ok := profile.PresetLabel(settings.Preset)
	if !ok {
		return Job{}, fmt.Errorf("%w: %s has %d presets, got %d", ErrInvalidPreset, profile.Name, len(profile.PresetLabels), settings.Preset)
	}
	if strings.TrimSpace(source) == "" {
		return Job{}, errors.New("encode source path is empty")
	}

	tag := marker.Structured{Profile: profile.Name, Quality: settings.Quality, Preset: settings.Preset}
	output := TempPath(source)
	quality := strconv.Itoa(settings.Quality)

	args := []string{"-hide_banner", "-y", "-i", source, "-c:v", profile.Name}
	args = append(args, profile.SelectArgs...)
	args = append(args, profile.RateControl...)
	for _, flag := range profile.QualityFlags {
		args = append(args, flag, quality)
	}
	args = append(args, profile.PresetFlag, presetLabel)
	args = append(args,
		"-c:a", "copy",
		"-c:s", "copy",
		"-metadata", marker.TagKey+"="+tag.Value(),
		"-movflags", "use_metadata_tags",
		output,
	)

	return Job{
		Binary:  binary,
		Args:    args,
		Source:  source,
		Output:  output,
		Final:   FinalPath(source),
		Command: shellquote.Join(append([]string{binary}, args...)...),
		Tag:     tag,
	}, nil
}

// TempPath is where an encode of source is written before commit.
func TempPath(source string) string {
	return stem(source) + TempSuffix + OutputExt
}

// FinalPath is the committed name for an encode of source.
func FinalPath(source string) string {
	return stem(source) + OutputExt
}

// IsTempPath reports whether path looks like an unfinished encode.
func IsTempPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), TempSuffix+OutputExt)
}

func stem(source string) string {
	dir, base := filepath.Split(source)
	return dir + strings.TrimSuffix(base, filepath.Ext(base))
}
