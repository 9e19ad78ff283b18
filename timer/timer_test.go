package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testingclock "k8s.io/utils/clock/testing"
)

const waitFor = time.Second

func TestScopedFires(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	s := NewScoped(fc)

	var calls atomic.Int32
	s.Schedule(100*time.Millisecond, func() { calls.Add(1) })
	assert.True(t, s.Pending())

	fc.Step(99 * time.Millisecond)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	fc.Step(time.Millisecond)
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !s.Pending() }, waitFor, 5*time.Millisecond)
}

func TestScopedRescheduleCancelsEarlier(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	s := NewScoped(fc)

	var first, second atomic.Int32
	s.Schedule(100*time.Millisecond, func() { first.Add(1) })
	fc.Step(50 * time.Millisecond)
	s.Schedule(100*time.Millisecond, func() { second.Add(1) })

	fc.Step(60 * time.Millisecond)
	assert.Never(t, func() bool { return first.Load() > 0 || second.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	fc.Step(40 * time.Millisecond)
	assert.Eventually(t, func() bool { return second.Load() == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestScopedCancel(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	s := NewScoped(fc)

	var calls atomic.Int32
	assert.False(t, s.Cancel())
	s.Schedule(time.Second, func() { calls.Add(1) })
	assert.True(t, s.Cancel())
	assert.False(t, s.Pending())

	fc.Step(2 * time.Second)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestPeriodic(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	p := NewPeriodic(fc)

	var calls atomic.Int32
	p.Start(time.Minute, func() { calls.Add(1) })
	assert.True(t, p.Running())

	for i := int32(1); i <= 3; i++ {
		assert.Eventually(t, fc.HasWaiters, waitFor, 5*time.Millisecond)
		fc.Step(time.Minute)
		want := i
		assert.Eventually(t, func() bool { return calls.Load() == want }, waitFor, 5*time.Millisecond)
	}

	p.Stop()
	assert.False(t, p.Running())
	fc.Step(time.Minute)
	assert.Never(t, func() bool { return calls.Load() > 3 }, 50*time.Millisecond, 5*time.Millisecond)
}
