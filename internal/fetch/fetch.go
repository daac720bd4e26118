// Package fetch bounds provider calls with hard deadlines and typed
// fallbacks. A call that is too slow and a call that fails collapse into the
// same degraded-but-present result, so one broken provider can never sink a
// dashboard render.
package fetch

import (
	"context"
	"time"
)

// Status classifies how a guarded call settled.
type Status int

const (
	StatusOK Status = iota
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Live reports whether the call produced real data.
func (s Status) Live() bool {
	return s == StatusOK
}

// Result pairs a settled value with how it settled. Value holds the fallback
// whenever Status is not StatusOK.
type Result[T any] struct {
	Value  T
	Status Status
}

// Task is one entry of a fan-out: a keyed operation plus the value to
// substitute when it fails or exceeds the deadline. A positive Timeout
// overrides the fan-out's default; provider classes carry distinct deadlines.
type Task[T any] struct {
	Key      string
	Fallback T
	Timeout  time.Duration
	Run      func(context.Context) (T, error)
}

// WithTimeout races fn against the deadline. If the deadline wins, the
// operation is abandoned: its eventual settlement is discarded via the
// buffered channel and its context is cancelled, but its outcome never
// surfaces. Errors from fn itself also map to the fallback.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, fallback T, fn func(context.Context) (T, error)) (T, Status) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type settled struct {
		value T
		err   error
	}
	done := make(chan settled, 1)

	go func() {
		value, err := fn(callCtx)
		done <- settled{value: value, err: err}
	}()

	select {
	case s := <-done:
		if s.err != nil {
			return fallback, StatusFailed
		}
		return s.value, StatusOK
	case <-callCtx.Done():
		return fallback, StatusTimedOut
	}
}

// All runs every task concurrently, each independently guarded by the same
// per-entry timeout, and returns one result per key. It never fails as a
// whole: a rejecting or hanging entry settles to its fallback without
// delaying or dropping any other entry.
func All[T any](ctx context.Context, timeout time.Duration, tasks []Task[T]) map[string]Result[T] {
	type keyed struct {
		key    string
		result Result[T]
	}
	settled := make(chan keyed, len(tasks))

	for _, task := range tasks {
		go func(task Task[T]) {
			deadline := timeout
			if task.Timeout > 0 {
				deadline = task.Timeout
			}
			value, status := WithTimeout(ctx, deadline, task.Fallback, task.Run)
			settled <- keyed{key: task.Key, result: Result[T]{Value: value, Status: status}}
		}(task)
	}

	results := make(map[string]Result[T], len(tasks))
	for range tasks {
		entry := <-settled
		results[entry.key] = entry.result
	}
	return results
}
