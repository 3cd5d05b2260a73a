package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(enabled bool) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(enabled, 3, 5*time.Second, 15*time.Second, nil)
	cb.now = clock.Now
	return cb, clock
}

func TestTripsAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(true)

	assert.False(t, cb.RecordFailure())
	assert.False(t, cb.RecordFailure())
	assert.True(t, cb.RecordFailure(), "third failure should trip the circuit")
	assert.True(t, cb.IsOpen())
}

func TestFailuresOutsideWindowDoNotAccumulate(t *testing.T) {
	cb, clock := newTestBreaker(true)

	cb.RecordFailure()
	cb.RecordFailure()
	clock.Advance(6 * time.Second)

	assert.False(t, cb.RecordFailure())
	count, _, _, _ := cb.GetState()
	assert.Equal(t, 1, count)
	assert.False(t, cb.IsOpen())
}

func TestClosesAfterResetTimeout(t *testing.T) {
	cb, clock := newTestBreaker(true)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	assert.True(t, cb.IsOpen())

	clock.Advance(16 * time.Second)
	assert.False(t, cb.IsOpen())
}

func TestSuccessClearsFailures(t *testing.T) {
	cb, _ := newTestBreaker(true)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	assert.False(t, cb.RecordFailure())
	assert.False(t, cb.IsOpen())
}

func TestManualReset(t *testing.T) {
	cb, _ := newTestBreaker(true)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	cb.Reset()
	assert.False(t, cb.IsOpen())
}

func TestDisabledNeverTrips(t *testing.T) {
	cb, _ := newTestBreaker(false)
	for i := 0; i < 10; i++ {
		assert.False(t, cb.RecordFailure())
	}
	assert.False(t, cb.IsOpen())
	assert.False(t, cb.IsEnabled())
}
