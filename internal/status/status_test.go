package status

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCodeStrings(t *testing.T) {
	cases := []struct {
		code Code
		want string
	}{
		{Success, "OK"},
		{Unknown, "Unknown"},
		{Internal, "Internal"},
		{NotFound, "Not found"},
		{InvalidArgument, "Invalid argument"},
		{Unavailable, "Unavailable"},
		{Unsupported, "Unsupported"},
		{AlreadyExists, "Already exists"},
		{Cancelled, "Cancelled"},
		{Code(99), "<invalid code>"},
	}
	for _, c := range cases {
		if got := c.code.String(); got != c.want {
			t.Fatalf("Code(%d).String() = %q, want %q", c.code, got, c.want)
		}
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(nil) != Success {
		t.Fatalf("nil should be success")
	}
	err := Newf(NotFound, "model %q", "m")
	if CodeOf(err) != NotFound || !IsNotFound(err) {
		t.Fatalf("unexpected code for %v", err)
	}
	wrapped := fmt.Errorf("load: %w", err)
	if CodeOf(wrapped) != NotFound {
		t.Fatalf("wrapped status error lost its code")
	}
	if CodeOf(errors.New("plain")) != Unknown {
		t.Fatalf("plain errors should map to unknown")
	}
	if CodeOf(context.Canceled) != Cancelled {
		t.Fatalf("context.Canceled should map to cancelled")
	}
	if got := err.Error(); got != `Not found: model "m"` {
		t.Fatalf("Error() = %q", got)
	}
}

func TestPrefixSuffixKeepCode(t *testing.T) {
	err := New(InvalidArgument, "bad dims")
	p := Prefix(err, "model input ")
	if CodeOf(p) != InvalidArgument || Message(p) != "model input bad dims" {
		t.Fatalf("prefix: %v", p)
	}
	s := Suffix(p, " for m")
	if CodeOf(s) != InvalidArgument || Message(s) != "model input bad dims for m" {
		t.Fatalf("suffix: %v", s)
	}
	if Prefix(nil, "x") != nil || Suffix(nil, "x") != nil {
		t.Fatalf("nil should stay nil")
	}
}
