// Package worker runs one job in its own goroutine and hands back its result.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
)

// ExecutionError reports a job that did not complete normally.
type ExecutionError struct {
	Token string
	Err   error
	Stack []byte
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("worker %s: execution error: %v", e.Token, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

type result[T any] struct {
	val T
	err error
}

// Instance is a running job.
type Instance[T any] struct {
	token string
	done  chan result[T]
}

// Spawn starts fn in a new goroutine. fn receives only what the caller passes in;
// a panic inside it is recovered and reported as *ExecutionError.
func Spawn[T any](ctx context.Context, token string, fn func(context.Context) (T, error)) *Instance[T] {
	inst := &Instance[T]{token: token, done: make(chan result[T], 1)}
	go func() {
		var res result[T]
		defer func() {
			if p := recover(); p != nil {
				err, ok := p.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", p)
				}
				res = result[T]{err: &ExecutionError{Token: token, Err: err, Stack: debug.Stack()}}
			}
			inst.done <- res
		}()
		res.val, res.err = fn(ctx)
	}()
	return inst
}

func (i *Instance[T]) Token() string { return i.token }

// Result waits for the job or ctx. The job keeps running if ctx ends first.
func (i *Instance[T]) Result(ctx context.Context) (T, error) {
	select {
	case r := <-i.done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
