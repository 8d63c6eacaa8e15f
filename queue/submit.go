package queue

import (
	"context"

	"go.uber.org/zap"
)

// Submit enqueues fn and returns its pending result immediately.
//
// fn runs on the queue worker with a context that keeps ctx's values but
// not its cancellation. A submission to a closed queue fails synchronously.
func Submit[T any](ctx context.Context, q *Queue, op string, fn func(ctx context.Context) (T, error)) (*Future[T], error) {
	f := newFuture[T]()
	u := &unit{
		ctx: context.WithoutCancel(ctx),
		op:  op,
		run: func(ctx context.Context, finish func()) {
			v, err := fn(ctx)
			f.resolve(v, err)
			finish()
		},
		fail: func(err error) {
			var zero T
			f.resolve(zero, err)
		},
	}
	if err := q.enqueue(u); err != nil {
		return nil, err
	}
	return f, nil
}

// SubmitAsync enqueues completion-signaled work. The queue slot is held
// until fn calls complete; later calls to complete are ignored. If fn
// panics the future fails at once, but the slot is still held until
// complete is called or the queue's FaultTimeout passes.
func SubmitAsync[T any](ctx context.Context, q *Queue, op string, fn func(ctx context.Context, complete func(T, error))) (*Future[T], error) {
	f := newFuture[T]()
	u := &unit{
		ctx:   context.WithoutCancel(ctx),
		op:    op,
		async: true,
		fail: func(err error) {
			var zero T
			f.resolve(zero, err)
		},
	}
	u.run = func(ctx context.Context, finish func()) {
		fn(ctx, func(v T, err error) {
			if !f.resolve(v, err) {
				q.log.Warn("completion signaled more than once",
					zap.String("op", op),
					zap.Uint64("seq", u.seq))
			}
			finish()
		})
	}
	if err := q.enqueue(u); err != nil {
		return nil, err
	}
	return f, nil
}

// Do submits fn and waits for its result.
func Do[T any](ctx context.Context, q *Queue, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	f, err := Submit(ctx, q, op, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Wait(ctx)
}

// DoAsync submits completion-signaled work and waits for its result.
func DoAsync[T any](ctx context.Context, q *Queue, op string, fn func(ctx context.Context, complete func(T, error))) (T, error) {
	f, err := SubmitAsync(ctx, q, op, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Wait(ctx)
}
