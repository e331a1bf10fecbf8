package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "lead consistency job")
		panic("nil team")
	}()

	out := buf.String()
	if !strings.Contains(out, "PANIC recovered") || !strings.Contains(out, "lead consistency job") {
		t.Errorf("Expected panic to be logged with context, got %s", out)
	}
}

func TestPanicError(t *testing.T) {
	if PanicError(nil) != nil {
		t.Error("Expected nil for no panic")
	}

	sentinel := errors.New("boom")
	if err := PanicError(sentinel); !errors.Is(err, sentinel) {
		t.Errorf("Expected wrapped error, got %v", err)
	}
	if err := PanicError(42); err == nil || err.Error() != "panic: 42" {
		t.Errorf("Unexpected error %v", err)
	}
}
