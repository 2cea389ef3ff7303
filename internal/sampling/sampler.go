// Package sampling applies the configured sample rate to incoming events.
package sampling

import "math/rand"

type Sampler struct {
	randFloat func() float64
}

func New() *Sampler {
	return &Sampler{randFloat: rand.Float64}
}

// Keep draws uniformly from [0, 1) and keeps the event when the draw falls
// below rate. A rate of 1 keeps everything since the draw never reaches 1;
// a rate of 0 keeps nothing since the comparison is strict.
func (s *Sampler) Keep(rate float64) bool {
	return s.randFloat() < rate
}
