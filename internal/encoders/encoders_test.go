package encoders_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"recoder/internal/encoders"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	p, err := encoders.Lookup(" HEVC_NVENC ")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if p.Name != "hevc_nvenc" || p.Class != encoders.ClassGPU {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestLookupUnknownProfile(t *testing.T) {
	_, err := encoders.Lookup("h264_magic")
	if !errors.Is(err, encoders.ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestSelectPreservesOrder(t *testing.T) {
	profiles, err := encoders.Select([]string{"hevc_amf", "libx265"})
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	got := []string{profiles[0].Name, profiles[1].Name}
	if diff := cmp.Diff([]string{"hevc_amf", "libx265"}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	all, err := encoders.Select(nil)
	if err != nil {
		t.Fatalf("Select(nil) returned error: %v", err)
	}
	if len(all) != len(encoders.Names()) {
		t.Fatalf("expected every profile, got %d", len(all))
	}
}

func TestBuiltinProfilesAreComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range encoders.All() {
		if seen[p.Name] {
			t.Fatalf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = true
		if len(p.QualityFlags) == 0 {
			t.Errorf("%s: no quality flags", p.Name)
		}
		if p.PresetFlag == "" || len(p.PresetLabels) < 3 {
			t.Errorf("%s: expected preset flag and three preset labels", p.Name)
		}
	}
}

func TestPresetLabel(t *testing.T) {
	p, _ := encoders.Lookup("libx265")
	tests := []struct {
		level int
		want  string
		ok    bool
	}{
		{0, "fast", true},
		{1, "medium", true},
		{2, "slow", true},
		{3, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		got, ok := p.PresetLabel(tt.level)
		if got != tt.want || ok != tt.ok {
			t.Errorf("PresetLabel(%d) = %q,%v want %q,%v", tt.level, got, ok, tt.want, tt.ok)
		}
	}
}
