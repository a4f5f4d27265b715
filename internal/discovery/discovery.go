// Package discovery finds the video files a batch run should queue.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"recoder/internal/encodecmd"
	"recoder/internal/logging"
)

// ErrNoInputs is returned when no root path was given.
var ErrNoInputs = errors.New("no input paths")

// File is a discovered video file.
type File struct {
	Path string
	Size int64
}

// Options controls which files match.
type Options struct {
	// Extensions are lowercase and without a leading dot.
	Extensions []string
	Logger     *slog.Logger
}

// Find walks each root recursively and returns matching files in lexical
// order per root. A root may also name a single file. Leftover temporary
// encode outputs are never returned, and a path reachable from two roots is
// returned once.
func Find(ctx context.Context, roots []string, opts Options) ([]File, error) {
	if len(roots) == 0 {
		return nil, ErrNoInputs
	}
	logger := logging.NewComponentLogger(opts.Logger, "discovery")
	allowed := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	seen := make(map[string]struct{})
	var files []File
	add := func(path string, info fs.FileInfo) {
		if _, dup := seen[path]; dup {
			return
		}
		if !matches(path, allowed) {
			return
		}
		seen[path] = struct{}{}
		files = append(files, File{Path: path, Size: info.Size()})
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(abs, info)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				logging.WarnWithContext(logger, "skipping unreadable path", "discovery_walk_error",
					logging.String(logging.FieldFile, path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "files under this path are not queued"))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			add(path, info)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("discovery complete", logging.Int("files", len(files)))
	return files, nil
}

func matches(path string, allowed map[string]struct{}) bool {
	if encodecmd.IsTempPath(path) {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[ext]
	return ok
}

// Paths returns just the paths of files.
func Paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

// TotalSize sums the sizes of files.
func TotalSize(files []File) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
