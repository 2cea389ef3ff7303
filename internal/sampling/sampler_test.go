package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixedSampler(draw float64) *Sampler {
	s := New()
	s.randFloat = func() float64 { return draw }
	return s
}

func TestKeepRateOneKeepsEverything(t *testing.T) {
	// Highest value Float64 can produce is still below 1.
	s := fixedSampler(0.9999999999999999)
	for i := 0; i < 100; i++ {
		assert.True(t, s.Keep(1))
	}
}

func TestKeepRateZeroDropsEverything(t *testing.T) {
	s := fixedSampler(0)
	for i := 0; i < 100; i++ {
		assert.False(t, s.Keep(0))
	}
}

func TestKeepComparisonIsStrict(t *testing.T) {
	assert.True(t, fixedSampler(0.4999).Keep(0.5))
	assert.False(t, fixedSampler(0.5).Keep(0.5))
	assert.False(t, fixedSampler(0.7).Keep(0.5))
}

func TestKeepDefaultSourceHonorsFullRate(t *testing.T) {
	s := New()
	for i := 0; i < 100; i++ {
		assert.True(t, s.Keep(1))
	}
}
