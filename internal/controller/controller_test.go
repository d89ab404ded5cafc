package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/conductor/internal/core"
	"github.com/yanizio/conductor/internal/fault"
)

func noop(context.Context, []string) error { return nil }

func TestBaseLookup(t *testing.T) {
	var b Base
	b.Handle("indexAction", nil, noop)
	b.HandleSig("viewAction", "(id /* numeric */, page)", noop)
	b.Handle("brokenAction", nil, nil)

	a, ok := b.Lookup("viewAction")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "page"}, a.Params)

	_, ok = b.Lookup("indexAction")
	assert.True(t, ok)
	_, ok = b.Lookup("brokenAction")
	assert.False(t, ok, "nil Fn is not an action")
	_, ok = b.Lookup("missingAction")
	assert.False(t, ok)
}

func TestReadyWithoutConstruct(t *testing.T) {
	var b Base
	assert.NoError(t, b.Ready(context.Background()))
}

func TestReadyWaitsForConstruct(t *testing.T) {
	var b Base
	release := make(chan struct{})
	b.Construct(func() error {
		<-release
		return errors.New("init failed")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Ready(ctx), context.DeadlineExceeded)

	close(release)
	assert.EqualError(t, b.Ready(context.Background()), "init failed")
}

func TestReadyReportsConstructPanic(t *testing.T) {
	var b Base
	b.Construct(func() error { panic("bad init") })

	var pe *fault.PanicError
	assert.ErrorAs(t, b.Ready(context.Background()), &pe)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	built := 0
	r.Register("Home", "Index", func(*core.Context) (Controller, error) {
		built++
		return &Base{}, nil
	})

	_, err := r.Lookup("home/index", nil)
	require.NoError(t, err)
	_, err = r.Lookup(" HOME/INDEX ", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, built, "fresh controller per lookup")

	_, err = r.Lookup("home/missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"home/index"}, r.Names())
}

func TestRegistryFactoryError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register("home", "bad", func(*core.Context) (Controller, error) { return nil, boom })

	_, err := r.Lookup("home/bad", nil)
	assert.ErrorIs(t, err, boom)
}

func TestArg(t *testing.T) {
	assert.Equal(t, "a", Arg([]string{"a"}, 0))
	assert.Equal(t, "", Arg([]string{"a"}, 1))
	assert.Equal(t, "", Arg(nil, 0))
}
