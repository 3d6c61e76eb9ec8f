package logging

// ProgressSampler suppresses repetitive progress logs. It emits when the
// completed fraction crosses a percentage bucket boundary and always on the
// final item.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent (default 10).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress done/total should be logged. A nil
// sampler logs everything.
func (s *ProgressSampler) ShouldLog(done, total int) bool {
	if s == nil || total <= 0 || done >= total {
		return true
	}
	bucket := int(float64(done) * 100 / float64(total) / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}
