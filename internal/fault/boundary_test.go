package fault

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuccess(t *testing.T) {
	reported := 0
	out := Run(context.Background(), func(context.Context) error { return nil },
		func(error) { reported++ })
	assert.False(t, out.Failed())
	assert.Zero(t, reported)
}

func TestRunReturnedError(t *testing.T) {
	boom := errors.New("boom")
	var got error
	out := Run(context.Background(), func(context.Context) error { return boom },
		func(err error) { got = err })
	assert.ErrorIs(t, out.Err, boom)
	assert.ErrorIs(t, got, boom)
	assert.Nil(t, out.Stack)
}

func TestRunPanic(t *testing.T) {
	var got error
	out := Run(context.Background(), func(context.Context) error { panic("kaboom") },
		func(err error) { got = err })

	var pe *PanicError
	require.ErrorAs(t, out.Err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, out.Stack)
	assert.Equal(t, "panic: kaboom", got.Error())
}

func TestRunPanicWithError(t *testing.T) {
	sentinel := errors.New("sentinel")
	out := Run(context.Background(), func(context.Context) error { panic(sentinel) }, nil)
	assert.ErrorIs(t, out.Err, sentinel)
}

func TestGoReportsIntoBoundaryOnce(t *testing.T) {
	var reports atomic.Int32
	done := make(chan struct{})

	Run(context.Background(), func(ctx context.Context) error {
		Go(ctx, func(context.Context) error {
			defer close(done)
			panic("async")
		})
		return errors.New("sync failure")
	}, func(error) { reports.Add(1) })

	<-done
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), reports.Load())
}

func TestGoAfterSuccessfulRun(t *testing.T) {
	got := make(chan error, 1)
	Run(context.Background(), func(ctx context.Context) error {
		Go(ctx, func(context.Context) error { return errors.New("late") })
		return nil
	}, func(err error) { got <- err })

	select {
	case err := <-got:
		assert.EqualError(t, err, "late")
	case <-time.After(time.Second):
		t.Fatal("late failure never reported")
	}
}

func TestGoWithoutBoundary(t *testing.T) {
	done := make(chan struct{})
	Go(context.Background(), func(context.Context) error {
		defer close(done)
		return errors.New("nobody listens")
	})
	<-done
}

func TestCapture(t *testing.T) {
	assert.NoError(t, Capture(func() error { return nil }))
	var pe *PanicError
	assert.ErrorAs(t, Capture(func() error { panic(1) }), &pe)
}
