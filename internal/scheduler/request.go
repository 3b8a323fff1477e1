package scheduler

import (
	"context"

	"github.com/google/uuid"

	"modelcore/internal/status"
)

// Request is an inference request that can be waited on. The FIFO
// completes it after the executing instance releases its payload.
type Request struct {
	id    string
	batch uint32
	done  chan error
	by    string
}

// NewRequest returns a request for batch items with a fresh id.
func NewRequest(batch uint32) *Request {
	if batch == 0 {
		batch = 1
	}
	return &Request{id: uuid.NewString(), batch: batch, done: make(chan error, 1)}
}

func (r *Request) ID() string        { return r.id }
func (r *Request) BatchSize() uint32 { return r.batch }

// Complete records the outcome of the request. Only the first call counts.
func (r *Request) Complete(err error) {
	select {
	case r.done <- err:
	default:
	}
}

// Wait blocks until the request completes or ctx is done.
func (r *Request) Wait(ctx context.Context) error {
	select {
	case err := <-r.done:
		return err
	case <-ctx.Done():
		return status.Newf(status.Cancelled, "request %s: %v", r.id, ctx.Err())
	}
}

// ExecutedBy is the instance that executed the request, once complete.
func (r *Request) ExecutedBy() string { return r.by }

// Completer is implemented by requests that want to learn their outcome.
type Completer interface {
	Complete(err error)
}
