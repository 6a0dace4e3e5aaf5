package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_NowIsStrictlyIncreasing(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	f := NewFake(start)

	first := f.Now()
	second := f.Now()

	assert.Equal(t, start, first)
	assert.True(t, second.After(first))
}

func TestFake_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	f := NewFake(start)
	f.Step = 0

	f.Advance(time.Hour)

	assert.Equal(t, start.Add(time.Hour), f.Now())
}

func TestReal_ReturnsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Real().Now().Location())
}
