// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect returns streams and container format for display, while InspectTags
// reads only the container metadata tags that carry recoder's completion
// markers.
package ffprobe
