package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scantocookbook/internal/retry"
)

type sleepRecorder struct{ delays []time.Duration }

func (s *sleepRecorder) sleep(d time.Duration) { s.delays = append(s.delays, d) }

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	rec := &sleepRecorder{}
	policy := retry.New(3, 2*time.Second, retry.WithSleeper(rec.sleep))

	calls := 0
	err := policy.Do(context.Background(), "upload", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, rec.delays)
}

func TestDoReturnsLastErrorWhenExhausted(t *testing.T) {
	rec := &sleepRecorder{}
	policy := retry.New(3, time.Second, retry.WithSleeper(rec.sleep))

	calls := 0
	err := policy.Do(context.Background(), "download", func(context.Context) error {
		calls++
		return errors.New("attempt failure")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.delays, 2)
	assert.Contains(t, err.Error(), "download: failed after 3 attempts")
	assert.Contains(t, err.Error(), "attempt failure")
}

func TestDoStopsOnPermanentError(t *testing.T) {
	policy := retry.New(5, time.Second, retry.WithSleeper(func(time.Duration) { t.Fatal("unexpected sleep") }))
	missing := errors.New("missing")

	calls := 0
	err := policy.Do(context.Background(), "stat", func(context.Context) error {
		calls++
		return retry.Permanent(missing)
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, missing)
	assert.True(t, retry.IsPermanent(err))
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := retry.New(5, time.Second, retry.WithSleeper(func(time.Duration) { cancel() }))

	calls := 0
	err := policy.Do(ctx, "list", func(context.Context) error {
		calls++
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	err := retry.Policy{}.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.New("x")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValueReturnsResult(t *testing.T) {
	policy := retry.New(2, 0)
	calls := 0
	got, err := retry.DoValue(context.Background(), policy, "exists", func(context.Context) (bool, error) {
		calls++
		if calls == 1 {
			return false, errors.New("flaky")
		}
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestDelayForMultiplierAndJitter(t *testing.T) {
	policy := retry.New(4, 100*time.Millisecond, retry.WithMultiplier(2))
	assert.Equal(t, 100*time.Millisecond, policy.DelayFor(1))
	assert.Equal(t, 200*time.Millisecond, policy.DelayFor(2))
	assert.Equal(t, 400*time.Millisecond, policy.DelayFor(3))

	jittered := retry.New(2, 100*time.Millisecond, retry.WithJitter())
	for range 20 {
		d := jittered.DelayFor(1)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}
