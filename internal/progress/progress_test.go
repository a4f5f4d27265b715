package progress

import (
	"math"
	"testing"
)

func TestParseClockLines(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) (float64, bool)
		line  string
		want  float64
		ok    bool
	}{
		{"duration", ParseDuration, "  Duration: 01:02:03.50, start: 0.000000, bitrate: 5000 kb/s", 3723.5, true},
		{"duration no fraction", ParseDuration, "Duration: 00:00:10", 10, true},
		{"duration n/a", ParseDuration, "Duration: N/A, bitrate: N/A", 0, false},
		{"time", ParseTime, "frame= 240 fps= 48 q=28.0 size=1024kB time=00:00:10.01 bitrate=838.1kbits/s speed=2.0x", 10.01, true},
		{"time long hours", ParseTime, "time=100:00:00.00", 360000, true},
		{"time n/a", ParseTime, "frame=0 time=N/A bitrate=N/A", 0, false},
		{"unrelated", ParseTime, "Stream #0:0: Video: h264", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.parse(tt.line)
			if ok != tt.ok || math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("got %v,%v want %v,%v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTrackerLifecycle(t *testing.T) {
	var events []Event
	tr := NewTracker(func(e Event) { events = append(events, e) })
	tr.Register("job-1", JobRecord{DisplayName: "a.mkv", Profile: "libx265"})

	tr.Observe("job-1", "time=00:00:01.00") // before duration, ignored
	tr.Observe("job-1", "Duration: 00:01:40.00")
	tr.Observe("job-1", "Duration: 00:09:99.00") // second duration ignored
	tr.Observe("job-1", "time=00:00:50.00")
	tr.Observe("job-1", "time=00:00:40.00") // regress ignored
	tr.Observe("job-1", "time=00:00:50.00") // no change ignored
	tr.Observe("job-1", "time=00:05:00.00") // clamped to total
	tr.Finish("job-1", true)

	kinds := make([]EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	want := []EventKind{EventDuration, EventTime, EventTime, EventFinished}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
	if events[0].Total != 100 || events[0].Job.DisplayName != "a.mkv" {
		t.Fatalf("unexpected duration event: %+v", events[0])
	}
	if events[1].Percent() != 50 {
		t.Fatalf("unexpected percent: %v", events[1].Percent())
	}
	if events[2].Elapsed != 100 {
		t.Fatalf("elapsed should clamp to total, got %v", events[2].Elapsed)
	}
	if !events[3].Success || events[3].Percent() != 100 {
		t.Fatalf("unexpected finish event: %+v", events[3])
	}
}

func TestTrackerSeparatesJobsWithSameName(t *testing.T) {
	latest := map[string]float64{}
	tr := NewTracker(func(e Event) {
		if e.Kind == EventTime {
			latest[e.JobID] = e.Elapsed
		}
	})
	tr.Register("a", JobRecord{DisplayName: "movie.mkv"})
	tr.Register("b", JobRecord{DisplayName: "movie.mkv"})
	tr.Observe("a", "Duration: 00:10:00.00")
	tr.Observe("b", "Duration: 00:10:00.00")
	tr.Observe("a", "time=00:01:00.00")
	tr.Observe("b", "time=00:05:00.00")
	if latest["a"] != 60 || latest["b"] != 300 {
		t.Fatalf("jobs leaked into each other: %v", latest)
	}
}

func TestFinishWithoutDurationAndFailure(t *testing.T) {
	var got Event
	tr := NewTracker(func(e Event) { got = e })
	tr.Finish("ghost", false)
	if got.Kind != EventFinished || got.Success || got.Percent() != -1 {
		t.Fatalf("unexpected event: %+v", got)
	}

	tr.Observe("x", "Duration: 00:00:10.00")
	tr.Observe("x", "time=00:00:02.00")
	tr.Finish("x", false)
	if got.Elapsed != 2 {
		t.Fatalf("failed job should keep its last position, got %v", got.Elapsed)
	}
	tr.Observe("x", "time=00:00:05.00")
	if got.Kind != EventFinished {
		t.Fatal("finished job must not emit further events")
	}
}

func TestNilSink(t *testing.T) {
	tr := NewTracker(nil)
	tr.Observe("x", "Duration: 00:00:10.00")
	tr.Finish("x", true)
}
