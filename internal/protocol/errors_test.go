package protocol

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrCodeBadFrame,
		ErrBusy,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeFor(t *testing.T) {
	if got := CodeFor(nil); got != "" {
		t.Fatalf("nil: got %q", got)
	}
	if got := CodeFor(fmt.Errorf("x: %w", ErrMalformedIntent)); got != ErrCodeBadFrame {
		t.Fatalf("intent: got %q", got)
	}
	if got := CodeFor(fmt.Errorf("y: %w", ErrBadFrame)); got != ErrCodeBadFrame {
		t.Fatalf("frame: got %q", got)
	}
	if got := CodeFor(errors.New("boom")); got != ErrInternal {
		t.Fatalf("other: got %q", got)
	}
}
