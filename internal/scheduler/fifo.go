// Package scheduler provides the default request scheduler: a FIFO queue
// drained by the instance threads of one model.
package scheduler

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"modelcore/internal/model"
	"modelcore/internal/status"
	"modelcore/pkg/backendapi"
)

// Options configure a FIFO.
type Options struct {
	// MaxBatchSize caps the requests handed out in one payload; values
	// below one mean one request per payload.
	MaxBatchSize int
	// MaxQueueDepth bounds the queued requests; zero is unbounded.
	MaxQueueDepth int
	Logger        *zerolog.Logger
}

// FIFO hands queued requests to instances in arrival order. It implements
// model.Scheduler and model.WorkSource.
type FIFO struct {
	name     string
	maxBatch int
	maxDepth int
	log      zerolog.Logger

	mu       sync.Mutex
	queue    []backendapi.Request
	inflight int
	stopped  bool

	notify chan struct{}
	stopCh chan struct{}
}

var (
	_ model.Scheduler  = (*FIFO)(nil)
	_ model.WorkSource = (*FIFO)(nil)
)

// New returns an empty FIFO for model name.
func New(name string, opts Options) *FIFO {
	f := &FIFO{
		name:     name,
		maxBatch: opts.MaxBatchSize,
		maxDepth: opts.MaxQueueDepth,
		notify:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		log:      zerolog.Nop(),
	}
	if f.maxBatch < 1 {
		f.maxBatch = 1
	}
	if opts.Logger != nil {
		f.log = opts.Logger.With().Str("model", name).Logger()
	}
	return f
}

// Factory returns a model.SchedulerFactory building a FIFO sized from the
// model's max_batch_size.
func Factory(maxQueueDepth int, log *zerolog.Logger) model.SchedulerFactory {
	return func(m *model.Model, _ []*model.Instance) (model.Scheduler, model.WorkSource, error) {
		f := New(m.Name(), Options{
			MaxBatchSize:  int(m.Config().MaxBatchSize),
			MaxQueueDepth: maxQueueDepth,
			Logger:        log,
		})
		return f, f, nil
	}
}

// Enqueue appends req. It fails with Unavailable once the FIFO is stopped
// or full.
func (f *FIFO) Enqueue(req backendapi.Request) error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return status.Newf(status.Unavailable, "model '%s' is not accepting requests", f.name)
	}
	if f.maxDepth > 0 && len(f.queue) >= f.maxDepth {
		f.mu.Unlock()
		return status.Newf(status.Unavailable, "model '%s' queue is full (%d requests)", f.name, f.maxDepth)
	}
	f.queue = append(f.queue, req)
	f.inflight++
	f.mu.Unlock()
	f.signal()
	return nil
}

func (f *FIFO) signal() {
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// Dequeue waits for queued requests and returns up to the batch limit of
// them for inst.
func (f *FIFO) Dequeue(ctx context.Context, inst *model.Instance) (*model.Payload, error) {
	for {
		f.mu.Lock()
		if n := len(f.queue); n > 0 {
			if n > f.maxBatch {
				n = f.maxBatch
			}
			reqs := make([]backendapi.Request, n)
			copy(reqs, f.queue[:n])
			f.queue = f.queue[n:]
			more := len(f.queue) > 0
			f.mu.Unlock()
			if more {
				f.signal()
			}
			return &model.Payload{Instance: inst, Requests: reqs}, nil
		}
		if f.stopped {
			f.mu.Unlock()
			return nil, status.Newf(status.Unavailable, "model '%s' scheduler stopped", f.name)
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.stopCh:
		case <-f.notify:
		}
	}
}

// Release completes every request of p with execErr.
func (f *FIFO) Release(p *model.Payload, execErr error) {
	for _, r := range p.Requests {
		if c, ok := r.(Completer); ok {
			if req, ok := r.(*Request); ok && p.Instance != nil {
				req.by = p.Instance.Name()
			}
			c.Complete(execErr)
		}
	}
	f.mu.Lock()
	f.inflight -= len(p.Requests)
	f.mu.Unlock()
}

// InflightInferenceCount returns the requests queued or executing.
func (f *FIFO) InflightInferenceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inflight
}

// Stop rejects new requests and fails the queued ones with Unavailable.
// Requests already handed out still complete.
func (f *FIFO) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	dropped := f.queue
	f.queue = nil
	f.inflight -= len(dropped)
	close(f.stopCh)
	f.mu.Unlock()

	err := status.Newf(status.Unavailable, "model '%s' stopped before the request ran", f.name)
	for _, r := range dropped {
		if c, ok := r.(Completer); ok {
			c.Complete(err)
		}
	}
	if len(dropped) > 0 {
		f.log.Warn().Int("dropped", len(dropped)).Msg("scheduler stopped with queued requests")
	}
}
