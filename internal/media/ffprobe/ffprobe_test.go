package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestVideoCodec(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio", CodecName: "aac"}, {CodecType: "video", CodecName: "hevc"}}}
	if got := result.VideoCodec(); got != "hevc" {
		t.Fatalf("expected hevc, got %q", got)
	}
	if got := (Result{}).VideoCodec(); got != "" {
		t.Fatalf("expected empty codec, got %q", got)
	}
}

func TestInspectTagsReadsFormatTags(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\n" +
		"case \"$*\" in *format_tags*) ;; *) exit 3 ;; esac\n" +
		"printf '%s' '{\"format\":{\"tags\":{\"recoder\":\"libx265,28,1\",\"title\":\"Movie\"}}}'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	tags, err := InspectTags(context.Background(), stub, "/media/movie.mp4")
	if err != nil {
		t.Fatalf("InspectTags returned error: %v", err)
	}
	if tags["recoder"] != "libx265,28,1" || tags["title"] != "Movie" {
		t.Fatalf("unexpected tags: %v", tags)
	}
}

func TestInspectReportsFailure(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\necho 'moov atom not found' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	_, err := Inspect(context.Background(), stub, "/media/broken.mp4")
	if err == nil || !strings.Contains(err.Error(), "moov atom not found") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	if _, err := Inspect(context.Background(), stub, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
