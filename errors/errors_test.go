package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "bounds error",
			err:      OutOfBounds(65534, 10, 1),
			contains: []string{"[memory]", "out_of_bounds", "ptr=65534", "len=10", "pages=1"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseProgram,
				Kind:  KindEmptyStack,
			},
			contains: []string{"[program]", "empty_stack"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseTrace,
				Kind:   KindStorage,
				Detail: "record exchange",
				Cause:  errors.New("disk full"),
			},
			contains: []string{"[trace]", "storage", "record exchange", "caused by", "disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseEngine, KindInstantiation, cause, "instantiate")

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := ProtocolDesync("id %d != %d", 1, 2)

	if !errors.Is(err, &Error{Phase: PhaseRequest, Kind: KindProtocolDesync}) {
		t.Error("expected match on phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseRequest, Kind: KindEmptyStack}) {
		t.Error("different kind should not match")
	}
	if errors.Is(err, &Error{Phase: PhaseMemory, Kind: KindProtocolDesync}) {
		t.Error("different phase should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("short")
	err := New(PhaseHost, KindEncoding).
		Value(7).
		Cause(cause).
		Detail("payload for %s", "get_bytes32").
		Build()

	if err.Phase != PhaseHost || err.Kind != KindEncoding {
		t.Fatalf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Detail != "payload for get_bytes32" {
		t.Errorf("unexpected detail %q", err.Detail)
	}
	if err.Value != 7 {
		t.Errorf("unexpected value %v", err.Value)
	}
	if err.Cause != cause {
		t.Error("cause not set")
	}
}

func TestOutOfBounds_Value(t *testing.T) {
	err := OutOfBounds(12, 34, 5)
	access, ok := err.Value.(Access)
	if !ok {
		t.Fatalf("expected Access value, got %T", err.Value)
	}
	if access.Ptr != 12 || access.Length != 34 || access.Pages != 5 {
		t.Errorf("unexpected access %+v", access)
	}
	if IsFatal(err) {
		t.Error("bounds errors are recoverable")
	}
}

func TestCatchFatal(t *testing.T) {
	t.Run("no panic", func(t *testing.T) {
		if err := CatchFatal(func() {}); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("empty stack", func(t *testing.T) {
		err := CatchFatal(func() { Fatal(EmptyStack("pop")) })
		var e *Error
		if !errors.As(err, &e) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if e.Kind != KindEmptyStack {
			t.Errorf("expected empty_stack, got %s", e.Kind)
		}
	})

	t.Run("desync", func(t *testing.T) {
		err := CatchFatal(func() { Fatal(ProtocolDesync("bad id")) })
		if !IsFatal(err) {
			t.Fatalf("expected fatal error, got %v", err)
		}
	})

	t.Run("foreign panic is re-raised", func(t *testing.T) {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("expected re-raised panic, got %v", r)
			}
		}()
		_ = CatchFatal(func() { panic("boom") })
		t.Error("unreachable")
	})

	t.Run("recoverable error panic is re-raised", func(t *testing.T) {
		defer func() {
			if _, ok := recover().(*Error); !ok {
				t.Error("expected *Error panic to propagate")
			}
		}()
		_ = CatchFatal(func() { panic(OutOfBounds(0, 1, 0)) })
	})
}
