package builder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xmatch/internal/testutil"
)

func TestPacer_PausesEveryN(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}
	p := newPacer(3, time.Second, 0, sleeper.Sleep)

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Tick(context.Background(), nil))
	}
	assert.Equal(t, 3, sleeper.Count())
	assert.Equal(t, 3, p.Pauses())
}

func TestPacer_SettlesBeforePausing(t *testing.T) {
	var order []string
	sleep := func(context.Context, time.Duration) error {
		order = append(order, "sleep")
		return nil
	}
	p := newPacer(2, time.Second, 0, sleep)
	settle := func() { order = append(order, "settle") }

	for i := 0; i < 4; i++ {
		require.NoError(t, p.Tick(context.Background(), settle))
	}
	assert.Equal(t, []string{"settle", "sleep", "settle", "sleep"}, order)
}

func TestPacer_SleepErrorPropagates(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}
	p := newPacer(1, time.Second, 0, sleeper.Sleep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Tick(ctx, nil), context.Canceled)
}

func TestPacer_WaitWithoutLimiter(t *testing.T) {
	p := newPacer(50, time.Second, 0, nil)
	assert.Nil(t, p.limiter)
	assert.NoError(t, p.Wait(context.Background()))
}

func TestPacer_WaitWithLimiter(t *testing.T) {
	p := newPacer(50, time.Second, 1000, nil)
	require.NotNil(t, p.limiter)
	assert.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Wait(ctx))
}
