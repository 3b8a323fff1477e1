package model

import (
	"context"

	"modelcore/pkg/backendapi"
)

// Scheduler accepts inference requests for a model. Ownership of a request
// passes to the scheduler when Enqueue succeeds.
type Scheduler interface {
	Enqueue(req backendapi.Request) error
	InflightInferenceCount() int
	Stop()
}

// Payload is a batch of requests handed to one instance.
type Payload struct {
	Instance *Instance
	Requests []backendapi.Request
}

// WorkSource feeds instance threads. Dequeue blocks until work is available
// for inst or ctx is done. Release is called once per payload after
// execution with the execution error.
type WorkSource interface {
	Dequeue(ctx context.Context, inst *Instance) (*Payload, error)
	Release(p *Payload, execErr error)
}

// SchedulerFactory builds the scheduler of m. instances are the instances
// about to enter service.
type SchedulerFactory func(m *Model, instances []*Instance) (Scheduler, WorkSource, error)
