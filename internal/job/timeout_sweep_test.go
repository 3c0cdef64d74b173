package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *fakeSweeper) TimeoutSweep(context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestTimeoutSweepJob_RunOnce(t *testing.T) {
	sweeper := &fakeSweeper{n: 3}
	job := NewTimeoutSweepJob(sweeper, time.Minute, zap.NewNop())
	assert.Equal(t, 3, job.RunOnce(context.Background()))

	sweeper.err = errors.New("db gone")
	sweeper.n = 1
	assert.Equal(t, 1, job.RunOnce(context.Background()))
	assert.Equal(t, int32(2), sweeper.calls.Load())
}

func TestTimeoutSweepJob_DefaultInterval(t *testing.T) {
	job := NewTimeoutSweepJob(&fakeSweeper{}, 0, zap.NewNop())
	assert.Equal(t, 30*time.Minute, job.interval)
}

func TestTimeoutSweepJob_StartStop(t *testing.T) {
	sweeper := &fakeSweeper{}
	job := NewTimeoutSweepJob(sweeper, 5*time.Millisecond, zap.NewNop())

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	job.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}

func TestTimeoutSweepJob_StopsOnContextCancel(t *testing.T) {
	job := NewTimeoutSweepJob(&fakeSweeper{}, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not exit on cancel")
	}
}
