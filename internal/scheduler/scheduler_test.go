package scheduler

import (
	"bytes"
	"context"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RejectsInvalidSpec(t *testing.T) {
	s := New("every now and then", func(context.Context) {}, log.New(&bytes.Buffer{}, "", 0))
	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "invalid schedule")

	s = New("  ", func(context.Context) {}, log.New(&bytes.Buffer{}, "", 0))
	assert.ErrorContains(t, s.Start(context.Background()), "empty schedule")

	s = New("@hourly", nil, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_RunOnStart(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{}, 1)
	s := New("@hourly", func(context.Context) {
		calls.Add(1)
		done <- struct{}{}
	}, log.New(&bytes.Buffer{}, "", 0), WithRunOnStart())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run on start did not fire")
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a cron tick")
	}
	done := make(chan struct{}, 4)
	s := New("@every 1s", func(context.Context) { done <- struct{}{} }, log.New(&bytes.Buffer{}, "", 0))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled run did not fire")
	}
	<-s.Stop().Done()
}

func TestScheduler_SkipsCanceledContext(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New("@hourly", func(context.Context) { calls.Add(1) }, log.New(&bytes.Buffer{}, "", 0))
	s.tick(ctx)
	assert.Zero(t, calls.Load())
}

func TestScheduler_StopWaitsForRunOnStart(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := New("@hourly", func(context.Context) {
		close(started)
		<-release
	}, log.New(&bytes.Buffer{}, "", 0), WithRunOnStart())

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("run on start did not fire")
	}

	stopped := s.Stop()
	select {
	case <-stopped.Done():
		t.Fatal("stop returned while the start run was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stop never completed")
	}
}

func TestScheduler_RecoversPanickingRun(t *testing.T) {
	var buf bytes.Buffer
	s := New("@hourly", func(context.Context) { panic("boom") }, log.New(&buf, "", 0), WithRunOnStart())
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-s.Stop().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stop never completed")
	}
	assert.Contains(t, buf.String(), "panic")
}
