// internal/fault/boundary.go
//
// Per-request fault boundary.
//
// Context
// -------
// Run executes one unit of work and converts every way it can fail into a
// single report:
//
//   • a returned error,
//   • a panic anywhere on the calling goroutine (hooks, resolver, action),
//   • an error or panic from work started with Go on the same ctx, even
//     after Run has returned.
//
// report is called at most once per boundary.  Later failures are logged
// and dropped, so a request never gets two error responses.  Run also
// returns an Outcome so callers that want the result (the CLI exit code,
// metrics) do not have to observe report.
//
// Notes
// -----
// • Panics are recovered only here and in Capture.  Nothing else in the
//   tree calls recover.
package fault

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Outcome is the structured result of a boundary.
type Outcome struct {
	Err   error
	Stack []byte // set when Err came from a panic
}

// Failed reports whether the unit of work failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// PanicError wraps a recovered panic value.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap exposes a panicked error value to errors.Is and errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

type boundary struct {
	once   sync.Once
	report func(error)
}

type ctxKey struct{}

// fail forwards err to report the first time only.
func (b *boundary) fail(err error) bool {
	first := false
	b.once.Do(func() {
		first = true
		if b.report != nil {
			b.report(err)
		}
	})
	if !first {
		zap.S().Warnw("fault boundary: additional failure dropped", "err", err)
	}
	return first
}

// Run calls fn inside a new boundary attached to ctx.
func Run(ctx context.Context, fn func(ctx context.Context) error, report func(error)) Outcome {
	b := &boundary{report: report}
	ctx = context.WithValue(ctx, ctxKey{}, b)

	err := Capture(func() error { return fn(ctx) })
	if err == nil {
		return Outcome{}
	}
	b.fail(err)
	out := Outcome{Err: err}
	var pe *PanicError
	if errors.As(err, &pe) {
		out.Stack = pe.Stack
	}
	return out
}

// Go runs fn on a new goroutine owned by the boundary in ctx.  Without a
// boundary the failure is only logged.  A failure that lands after the
// transport has finished still reaches report once; the sink decides
// whether anything can be written (the HTTP sink refuses).
func Go(ctx context.Context, fn func(ctx context.Context) error) {
	b, _ := ctx.Value(ctxKey{}).(*boundary)
	go func() {
		err := Capture(func() error { return fn(ctx) })
		if err == nil {
			return
		}
		if b == nil {
			zap.S().Errorw("detached task failed", "err", err)
			return
		}
		b.fail(err)
	}()
}

// Capture calls fn and turns a panic into *PanicError.
func Capture(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
