package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomson/axiomson/internal/score"
)

func eqWithDuration(name string, seconds float64) score.Equation {
	return score.Equation{Name: name, Expr: "x", Duration: seconds}
}

func TestSubmit_AdmitsUpToCapacity(t *testing.T) {
	s := New(Token("a", "b", "c", "d"))

	adA := s.Submit(eqWithDuration("A", 0.5))
	adB := s.Submit(eqWithDuration("B", 0.5))
	adC := s.Submit(eqWithDuration("C", 0.5))
	adD := s.Submit(eqWithDuration("D", 0.5))

	assert.Equal(t, PhaseActive, adA.Phase)
	assert.Equal(t, PhaseActive, adB.Phase)
	assert.Equal(t, PhaseActive, adC.Phase)
	assert.Equal(t, PhaseQueued, adD.Phase)
	assert.Equal(t, 1, adD.QueuePosition)
	assert.Equal(t, "a", adA.Token)
	assert.Equal(t, "d", adD.Token)

	active, queued := s.Status()
	assert.Equal(t, []string{"A", "B", "C"}, active)
	assert.Equal(t, []string{"D"}, queued)
}

func TestScheduler_NeverExceedsCapacity(t *testing.T) {
	s := New()
	for i := 0; i < 8; i++ {
		s.Submit(eqWithDuration(string(rune('A'+i)), 0.05))
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		active, _ := s.Status()
		assert.LessOrEqual(t, len(active), DefaultCapacity)
		if s.Idle() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("scheduler did not drain in time")
}

func TestScheduler_FIFOPromotion(t *testing.T) {
	s := New()

	// A finishes first; B and C hold their slots. D and E wait.
	s.Submit(eqWithDuration("A", 0.03))
	s.Submit(eqWithDuration("B", 0.5))
	s.Submit(eqWithDuration("C", 0.5))
	s.Submit(eqWithDuration("D", 0.5))
	s.Submit(eqWithDuration("E", 0.5))

	_, queued := s.Status()
	require.Equal(t, []string{"D", "E"}, queued)

	// When A completes, D (the queue head) is admitted before E.
	require.Eventually(t, func() bool {
		active, _ := s.Status()
		return contains(active, "D")
	}, time.Second, 2*time.Millisecond)

	active, queued := s.Status()
	assert.NotContains(t, active, "A")
	assert.Contains(t, active, "D")
	assert.Equal(t, []string{"E"}, queued)
}

func TestScheduler_WaitUntilIdle(t *testing.T) {
	s := New()
	s.Submit(eqWithDuration("A", 0.02))
	s.Submit(eqWithDuration("B", 0.04))
	s.Submit(eqWithDuration("C", 0.02))
	s.Submit(eqWithDuration("D", 0.02)) // queued, promoted later

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.True(t, s.Idle())

	active, queued := s.Status()
	assert.Empty(t, active)
	assert.Empty(t, queued)
}

func TestScheduler_WaitCancellable(t *testing.T) {
	s := New()
	s.Submit(eqWithDuration("long", 5))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The lifetime keeps running in the background.
	active, _ := s.Status()
	assert.Equal(t, []string{"long"}, active)
}

func TestScheduler_WaitOnIdleReturnsImmediately(t *testing.T) {
	s := New()
	require.NoError(t, s.Wait(context.Background()))
}

func TestScheduler_CustomCapacity(t *testing.T) {
	s := New(WithCapacity(1))

	adA := s.Submit(eqWithDuration("A", 0.5))
	adB := s.Submit(eqWithDuration("B", 0.5))
	assert.Equal(t, PhaseActive, adA.Phase)
	assert.Equal(t, PhaseQueued, adB.Phase)
}

func TestScheduler_ZeroDurationDrains(t *testing.T) {
	s := New()
	s.Submit(eqWithDuration("instant", 0))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "queued", PhaseQueued.String())
	assert.Equal(t, "active", PhaseActive.String())
	assert.Equal(t, "finished", PhaseFinished.String())
}

// Token builds a WithTokenGenerator option from a fixed token sequence.
func Token(tokens ...string) Option {
	return WithTokenGenerator(score.NewFixedGenerator(tokens...))
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
