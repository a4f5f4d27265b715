package benchmark

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"recoder/internal/encoders"
	"recoder/internal/ffmpeg"
)

type fakeRunner struct {
	calls   []ffmpeg.Request
	respond func(req ffmpeg.Request) (ffmpeg.Result, []string, error)
}

func (f *fakeRunner) Run(_ context.Context, req ffmpeg.Request) (ffmpeg.Result, error) {
	f.calls = append(f.calls, req)
	result, lines, err := f.respond(req)
	for _, line := range lines {
		if req.OnLine != nil {
			req.OnLine(line)
		}
	}
	return result, err
}

func profiles(t *testing.T, names ...string) []encoders.Profile {
	t.Helper()
	selected, err := encoders.Select(names)
	if err != nil {
		t.Fatalf("select profiles: %v", err)
	}
	return selected
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestDiscoverReusesFreshCacheEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmarks.json")
	seed := NewCache(path, nil)
	if err := seed.Update([]Result{{Profile: "libx265", Speed: 1.5, MeasuredAt: fixedNow.Add(-24 * time.Hour)}}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	runner := &fakeRunner{respond: func(ffmpeg.Request) (ffmpeg.Result, []string, error) {
		t.Fatal("fresh entry must not be probed")
		return ffmpeg.Result{}, nil, nil
	}}
	d := NewDiscoverer(runner, NewCache(path, nil), Options{Now: func() time.Time { return fixedNow }}, nil)
	results, err := d.Discover(context.Background(), profiles(t, "libx265"))
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("expected no probes, got %d", len(runner.calls))
	}
	if len(results) != 1 || results[0].Speed != 1.5 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestDiscoverReprobesStaleAndFailedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmarks.json")
	seed := NewCache(path, nil)
	if err := seed.Update([]Result{
		{Profile: "libx265", Speed: 1.5, MeasuredAt: fixedNow.Add(-8 * 24 * time.Hour)},
		{Profile: "hevc_nvenc", Failed: true, MeasuredAt: fixedNow.Add(-time.Hour)},
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	runner := &fakeRunner{respond: func(req ffmpeg.Request) (ffmpeg.Result, []string, error) {
		return ffmpeg.Result{}, []string{"frame=1 speed=2.1x", "frame=600 speed=3.25x"}, nil
	}}
	d := NewDiscoverer(runner, NewCache(path, nil), Options{Now: func() time.Time { return fixedNow }}, nil)
	results, err := d.Discover(context.Background(), profiles(t, "libx265", "hevc_nvenc"))
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected both profiles probed, got %d", len(runner.calls))
	}
	for _, r := range results {
		if r.Failed || r.Speed != 3.25 || !r.MeasuredAt.Equal(fixedNow) {
			t.Fatalf("expected last speed match to win, got %+v", r)
		}
	}
}

func TestDiscoverRecordsFailures(t *testing.T) {
	runner := &fakeRunner{respond: func(req ffmpeg.Request) (ffmpeg.Result, []string, error) {
		switch req.Args[6] {
		case "hevc_nvenc":
			return ffmpeg.Result{ExitCode: 1}, []string{"Cannot load libcuda.so.1"}, nil
		case "hevc_amf":
			return ffmpeg.Result{}, []string{"no speed here"}, nil
		default:
			return ffmpeg.Result{ExitCode: -1}, nil, errors.New("exec format error")
		}
	}}
	path := filepath.Join(t.TempDir(), "benchmarks.json")
	d := NewDiscoverer(runner, NewCache(path, nil), Options{Now: func() time.Time { return fixedNow }}, nil)
	results, err := d.Discover(context.Background(), profiles(t, "hevc_nvenc", "hevc_amf", "libx265"))
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	for _, r := range results {
		if !r.Failed {
			t.Fatalf("expected %s to be failed", r.Profile)
		}
	}
	if got := Available(results); len(got) != 0 {
		t.Fatalf("expected no available encoders, got %+v", got)
	}
}

func TestDiscoverWritesCacheKeyedByProfile(t *testing.T) {
	runner := &fakeRunner{respond: func(req ffmpeg.Request) (ffmpeg.Result, []string, error) {
		if req.Args[6] == "hevc_amf" {
			return ffmpeg.Result{ExitCode: 1}, nil, nil
		}
		return ffmpeg.Result{}, []string{"speed=0.8x"}, nil
	}}
	path := filepath.Join(t.TempDir(), "state", "benchmarks.json")
	d := NewDiscoverer(runner, NewCache(path, nil), Options{Now: func() time.Time { return fixedNow }}, nil)
	if _, err := d.Discover(context.Background(), profiles(t, "libx265", "hevc_amf")); err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	var onDisk map[string]Result
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("decode cache: %v", err)
	}
	want := map[string]Result{
		"libx265":  {Profile: "libx265", Speed: 0.8, MeasuredAt: fixedNow},
		"hevc_amf": {Profile: "hevc_amf", Failed: true, MeasuredAt: fixedNow},
	}
	if diff := cmp.Diff(want, onDisk); diff != "" {
		t.Fatalf("cache mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverSubsetKeepsOtherEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmarks.json")
	seed := NewCache(path, nil)
	nvenc := Result{Profile: "hevc_nvenc", Speed: 6, MeasuredAt: fixedNow.Add(-time.Hour)}
	if err := seed.Update([]Result{
		{Profile: "libx265", Speed: 1.5, MeasuredAt: fixedNow.Add(-8 * 24 * time.Hour)},
		nvenc,
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	runner := &fakeRunner{respond: func(ffmpeg.Request) (ffmpeg.Result, []string, error) {
		return ffmpeg.Result{}, []string{"speed=2x"}, nil
	}}
	d := NewDiscoverer(runner, NewCache(path, nil), Options{Now: func() time.Time { return fixedNow }}, nil)
	if _, err := d.Discover(context.Background(), profiles(t, "libx265")); err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	want := []Result{
		nvenc,
		{Profile: "libx265", Speed: 2, MeasuredAt: fixedNow},
	}
	if diff := cmp.Diff(want, NewCache(path, nil).List()); diff != "" {
		t.Fatalf("cache entries mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverForceIgnoresCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmarks.json")
	seed := NewCache(path, nil)
	if err := seed.Update([]Result{{Profile: "libx265", Speed: 1.5, MeasuredAt: fixedNow}}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	runner := &fakeRunner{respond: func(ffmpeg.Request) (ffmpeg.Result, []string, error) {
		return ffmpeg.Result{}, []string{"speed=4x"}, nil
	}}
	d := NewDiscoverer(runner, NewCache(path, nil), Options{Force: true, Now: func() time.Time { return fixedNow }}, nil)
	results, err := d.Discover(context.Background(), profiles(t, "libx265"))
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(runner.calls) != 1 || results[0].Speed != 4 {
		t.Fatalf("expected forced probe, calls=%d results=%+v", len(runner.calls), results)
	}
}

func TestDiscoverStopsOnCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmarks.json")
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{respond: func(ffmpeg.Request) (ffmpeg.Result, []string, error) {
		cancel()
		return ffmpeg.Result{ExitCode: -1}, nil, context.Canceled
	}}
	d := NewDiscoverer(runner, NewCache(path, nil), Options{}, nil)
	if _, err := d.Discover(ctx, profiles(t, "libx265", "hevc_nvenc")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected probing to stop after cancel, got %d calls", len(runner.calls))
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("cache must not be written on cancel, stat err=%v", err)
	}
}

func TestProbeArgs(t *testing.T) {
	nvenc, _ := encoders.Lookup("hevc_nvenc")
	got := ProbeArgs(nvenc, "1920x1080", 600)
	want := []string{"-hide_banner", "-f", "lavfi", "-i", "color=size=1920x1080:rate=1:duration=600",
		"-c:v", "hevc_nvenc", "-gpu", "0", "-f", "null", "-"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmarks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt cache: %v", err)
	}
	cache := NewCache(path, nil)
	if len(cache.List()) != 0 {
		t.Fatal("expected empty cache after corrupt file")
	}
}

func TestReusable(t *testing.T) {
	week := 7 * 24 * time.Hour
	tests := []struct {
		name string
		r    Result
		want bool
	}{
		{"fresh", Result{Speed: 1, MeasuredAt: fixedNow.Add(-time.Hour)}, true},
		{"stale", Result{Speed: 1, MeasuredAt: fixedNow.Add(-week - time.Second)}, false},
		{"failed", Result{Failed: true, MeasuredAt: fixedNow}, false},
		{"zero time", Result{Speed: 1}, false},
	}
	for _, tt := range tests {
		if got := tt.r.Reusable(fixedNow, week); got != tt.want {
			t.Errorf("%s: Reusable = %v, want %v", tt.name, got, tt.want)
		}
	}
}
