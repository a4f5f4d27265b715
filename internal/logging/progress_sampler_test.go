package logging

import "testing"

func TestNewProgressSamplerDefaultsBucket(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"zero", 0, 5},
		{"negative", -1, 5},
		{"custom", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewProgressSampler(tt.bucketSize).bucketSize; got != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", got, tt.wantSize)
			}
		})
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog("job", 50) {
		t.Error("nil sampler should always log")
	}
	s.Forget("job")
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{5, false},
		{10, true},
		{19.9, false},
		{35, true},
		{30, false},
		{100, true},
		{100, false},
	}
	for i, step := range steps {
		if got := s.ShouldLog("a", step.percent); got != step.want {
			t.Fatalf("step %d (%.1f%%): got %v want %v", i, step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerTracksJobsIndependently(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog("a", 50) {
		t.Fatal("first sample for a should log")
	}
	if !s.ShouldLog("b", 10) {
		t.Fatal("first sample for b should log even though a is ahead")
	}
	if s.ShouldLog("a", 52) {
		t.Fatal("same bucket for a should not log")
	}
	s.Forget("a")
	if !s.ShouldLog("a", 52) {
		t.Fatal("forgotten job should log again")
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog("a", -1) {
		t.Fatal("first unknown sample should log")
	}
	if s.ShouldLog("a", -1) {
		t.Fatal("repeated unknown sample should not log")
	}
	if !s.ShouldLog("a", 0) {
		t.Fatal("first known percent should log")
	}
}
