package marker

import (
	"context"
	"errors"
	"testing"
)

type fakeInspector struct {
	tags map[string]string
	err  error
}

func (f fakeInspector) Tags(context.Context, string) (map[string]string, error) {
	return f.tags, f.err
}

func TestParseStructured(t *testing.T) {
	got, err := ParseStructured(" hevc_nvenc, 20 ,2 ")
	if err != nil {
		t.Fatalf("ParseStructured returned error: %v", err)
	}
	if got != (Structured{Profile: "hevc_nvenc", Quality: 20, Preset: 2}) {
		t.Fatalf("unexpected marker: %+v", got)
	}
	if got.Value() != "hevc_nvenc,20,2" {
		t.Fatalf("unexpected value: %q", got.Value())
	}

	for _, bad := range []string{"", "libx265,28", ",28,1", "libx265,high,1", "libx265,28,slow", "a,1,2,3"} {
		if _, err := ParseStructured(bad); !errors.Is(err, errMalformed) {
			t.Errorf("ParseStructured(%q): expected malformed error, got %v", bad, err)
		}
	}
}

func TestDecideMatrix(t *testing.T) {
	structured := Structured{Profile: "hevc_nvenc", Quality: 20, Preset: 2}
	tests := []struct {
		name    string
		marker  Marker
		req     Request
		want    Action
		blocked bool
	}{
		{"no marker", nil, Request{}, Proceed, false},
		{"no marker reencode", nil, Request{Reencode: true, Quality: 10}, Proceed, false},
		{"legacy", Legacy{Title: "Movie [recoder]"}, Request{}, Skip, false},
		{"legacy reencode", Legacy{Title: "Movie [recoder]"}, Request{Reencode: true, Quality: 40}, Skip, true},
		{"structured no reencode", structured, Request{Quality: 28}, Skip, false},
		{"structured reencode higher", structured, Request{Reencode: true, Quality: 28}, Proceed, false},
		{"structured reencode equal", structured, Request{Reencode: true, Quality: 20}, Skip, false},
		{"structured reencode lower", structured, Request{Reencode: true, Quality: 18}, Skip, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.marker, tt.req)
			if d.Action != tt.want {
				t.Fatalf("action = %v, want %v (%s)", d.Action, tt.want, d.Reason)
			}
			if d.ReencodeBlocked != tt.blocked {
				t.Fatalf("ReencodeBlocked = %v, want %v", d.ReencodeBlocked, tt.blocked)
			}
		})
	}
}

func TestDecideSkipMessage(t *testing.T) {
	d := Decide(Structured{Profile: "hevc_nvenc", Quality: 20, Preset: 2}, Request{Quality: 28})
	want := "already encoded with hevc_nvenc and a quality of 20 using preset 2"
	if d.Reason != want {
		t.Fatalf("reason = %q, want %q", d.Reason, want)
	}
}

func TestDetectorCheck(t *testing.T) {
	tests := []struct {
		name      string
		inspector fakeInspector
		req       Request
		want      Action
		wantKind  string
	}{
		{"structured skip", fakeInspector{tags: map[string]string{"recoder": "hevc_nvenc,20,2"}}, Request{}, Skip, "structured"},
		{"structured reencode", fakeInspector{tags: map[string]string{"recoder": "hevc_nvenc,20,2"}}, Request{Reencode: true, Quality: 28}, Proceed, "structured"},
		{"legacy upper-case key", fakeInspector{tags: map[string]string{"TITLE": "Film [recoder]"}}, Request{}, Skip, "legacy"},
		{"title without token", fakeInspector{tags: map[string]string{"title": "Film"}}, Request{}, Proceed, ""},
		{"malformed falls back to legacy", fakeInspector{tags: map[string]string{"recoder": "garbage", "title": "[recoder]"}}, Request{}, Skip, "legacy"},
		{"malformed alone proceeds", fakeInspector{tags: map[string]string{"recoder": "garbage"}}, Request{}, Proceed, ""},
		{"structured wins over legacy", fakeInspector{tags: map[string]string{"recoder": "libx265,30,0", "title": "[recoder]"}}, Request{Reencode: true, Quality: 35}, Proceed, "structured"},
		{"inspection error", fakeInspector{err: errors.New("ffprobe exploded")}, Request{}, Proceed, ""},
		{"no tags", fakeInspector{}, Request{}, Proceed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(tt.inspector, nil).Check(context.Background(), "/media/a.mp4", tt.req)
			if d.Action != tt.want {
				t.Fatalf("action = %v, want %v (%s)", d.Action, tt.want, d.Reason)
			}
			kind := ""
			switch d.Marker.(type) {
			case Structured:
				kind = "structured"
			case Legacy:
				kind = "legacy"
			}
			if kind != tt.wantKind {
				t.Fatalf("marker kind = %q, want %q", kind, tt.wantKind)
			}
		})
	}
}
