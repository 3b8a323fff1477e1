package httpapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJoinContexts(t *testing.T) {
	for _, first := range []string{"a", "b"} {
		a, ac := context.WithCancel(context.Background())
		b, bc := context.WithCancel(context.Background())
		j, cancel := joinContexts(a, b)
		if first == "a" {
			ac()
		} else {
			bc()
		}
		select {
		case <-j.Done():
		case <-time.After(time.Second):
			t.Fatalf("joined context not done after %s was cancelled", first)
		}
		if !errors.Is(j.Err(), context.Canceled) {
			t.Fatalf("err = %v", j.Err())
		}
		cancel()
		ac()
		bc()
	}
}

func TestRequestContextFollowsBase(t *testing.T) {
	t.Cleanup(func() { SetBaseContext(context.Background()) })
	base, stop := context.WithCancel(context.Background())
	SetBaseContext(base)
	ctx, cancel := requestContext(httptest.NewRequest("POST", "/v2/models/m/load", nil))
	defer cancel()
	if ctx.Err() != nil {
		t.Fatalf("context done early: %v", ctx.Err())
	}
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("request context survived server shutdown")
	}
}

func TestRequestContextLoadTimeout(t *testing.T) {
	t.Cleanup(func() { SetLoadTimeout(0) })
	SetLoadTimeout(-time.Second)
	ctx, cancel := requestContext(httptest.NewRequest("POST", "/", nil))
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("negative timeout should leave the request unbounded")
	}
	cancel()

	SetLoadTimeout(20 * time.Millisecond)
	ctx, cancel = requestContext(httptest.NewRequest("POST", "/", nil))
	defer cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("load timeout did not fire")
	}
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("err = %v", ctx.Err())
	}
}

func TestSetBaseContextNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	cancel()
	//nolint:staticcheck // nil restores the background context
	SetBaseContext(nil)
	if settings.base.Err() != nil {
		t.Fatalf("base context should be Background after reset")
	}
}
