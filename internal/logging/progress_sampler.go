package logging

import "sync"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when a job's percentage crosses a bucket boundary. Each job is tracked
// independently so parallel encodes do not starve one another.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	last       map[string]int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 5%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, last: make(map[string]int)}
}

// ShouldLog reports whether a progress update for jobID should be logged.
// Negative percent means unknown and never emits after the first sample.
func (s *ProgressSampler) ShouldLog(jobID string, percent float64) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.last[jobID]
	if !seen {
		prev = -1
	}
	if percent < 0 {
		if !seen {
			s.last[jobID] = -1
			return true
		}
		return false
	}
	bucket := int(percent / s.bucketSize)
	if percent >= 100 {
		bucket = int(100 / s.bucketSize)
	}
	if bucket > prev {
		s.last[jobID] = bucket
		return true
	}
	return false
}

// Forget drops the state for a finished job.
func (s *ProgressSampler) Forget(jobID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.last, jobID)
	s.mu.Unlock()
}
