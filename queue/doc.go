// Package queue provides the single-flight task queue that mediates all
// access to the key engine.
//
// The engine instance is not reentrant, so every call into it is wrapped in
// a unit of work and submitted here. The queue guarantees:
//
//   - FIFO order across all submitters: if submission A happens before
//     submission B, A finishes before B starts.
//   - At most one unit executes at any instant.
//   - A unit's failure, including a panic, is delivered only to its own
//     Future; later units still run.
//   - Submission never blocks on the worker.
//
// # Usage
//
//	q := queue.New(&queue.Config{Name: "engine"})
//	defer q.Close(ctx)
//
//	key, err := queue.Do(ctx, q, "get_private_view_key",
//	    func(ctx context.Context) (string, error) {
//	        return eng.PrivateViewKey(ctx, id)
//	    })
//
// Completion-signaled engine entry points use SubmitAsync or DoAsync; the
// unit keeps the queue until it calls complete:
//
//	id, err := queue.DoAsync(ctx, q, "create_wallet_random",
//	    func(ctx context.Context, complete func(xmrkeys.HandleID, error)) {
//	        eng.CreateRandom(ctx, req, complete)
//	    })
//
// # Cancellation
//
// There is none at this layer. Units run with context.WithoutCancel of the
// submitting context; cancelling ctx only abandons Wait.
package queue
