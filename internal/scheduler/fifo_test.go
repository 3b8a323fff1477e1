package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"modelcore/internal/model"
	"modelcore/internal/status"
)

func TestDequeueBatchesInOrder(t *testing.T) {
	f := New("m", Options{MaxBatchSize: 2})
	reqs := []*Request{NewRequest(1), NewRequest(1), NewRequest(1)}
	for _, r := range reqs {
		if err := f.Enqueue(r); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if f.InflightInferenceCount() != 3 {
		t.Fatalf("inflight = %d", f.InflightInferenceCount())
	}
	ctx := context.Background()
	p1, err := f.Dequeue(ctx, nil)
	if err != nil || len(p1.Requests) != 2 || p1.Requests[0] != reqs[0] || p1.Requests[1] != reqs[1] {
		t.Fatalf("first payload = %+v, %v", p1, err)
	}
	p2, err := f.Dequeue(ctx, nil)
	if err != nil || len(p2.Requests) != 1 || p2.Requests[0] != reqs[2] {
		t.Fatalf("second payload = %+v, %v", p2, err)
	}
	boom := status.New(status.Internal, "boom")
	f.Release(p1, nil)
	f.Release(p2, boom)
	if f.InflightInferenceCount() != 0 {
		t.Fatalf("inflight after release = %d", f.InflightInferenceCount())
	}
	if err := reqs[0].Wait(ctx); err != nil {
		t.Fatalf("request 0: %v", err)
	}
	if err := reqs[2].Wait(ctx); !errors.Is(err, boom) {
		t.Fatalf("request 2: %v", err)
	}
}

func TestDequeueWaitsForWork(t *testing.T) {
	f := New("m", Options{})
	got := make(chan *model.Payload, 1)
	go func() {
		p, err := f.Dequeue(context.Background(), nil)
		if err != nil {
			t.Errorf("dequeue: %v", err)
		}
		got <- p
	}()
	time.Sleep(20 * time.Millisecond)
	r := NewRequest(4)
	if err := f.Enqueue(r); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case p := <-got:
		if p == nil || p.Requests[0].ID() != r.ID() || p.Requests[0].BatchSize() != 4 {
			t.Fatalf("payload = %+v", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("dequeue never woke up")
	}
}

func TestDequeueHonorsContext(t *testing.T) {
	f := New("m", Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Dequeue(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestStopRejectsAndDrains(t *testing.T) {
	f := New("m", Options{})
	queued := NewRequest(1)
	if err := f.Enqueue(queued); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	f.Stop()
	f.Stop()
	if err := queued.Wait(context.Background()); !status.IsUnavailable(err) {
		t.Fatalf("queued request: %v", err)
	}
	if err := f.Enqueue(NewRequest(1)); !status.IsUnavailable(err) {
		t.Fatalf("enqueue after stop: %v", err)
	}
	if _, err := f.Dequeue(context.Background(), nil); !status.IsUnavailable(err) {
		t.Fatalf("dequeue after stop: %v", err)
	}
	if f.InflightInferenceCount() != 0 {
		t.Fatalf("inflight = %d", f.InflightInferenceCount())
	}
}

func TestQueueDepth(t *testing.T) {
	f := New("m", Options{MaxQueueDepth: 1})
	if err := f.Enqueue(NewRequest(1)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := f.Enqueue(NewRequest(1)); !status.IsUnavailable(err) {
		t.Fatalf("expected full queue, got %v", err)
	}
}

func TestRequestWaitCancelled(t *testing.T) {
	r := NewRequest(0)
	if r.BatchSize() != 1 || r.ID() == "" {
		t.Fatalf("request = %+v", r)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); status.CodeOf(err) != status.Cancelled {
		t.Fatalf("got %v", err)
	}
}
