package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := NewPathError(KindNotFound, "load", "/tmp/missing.txt", errors.New("stat failed"))
	wrapped := fmt.Errorf("ingest: %w", err)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("wrapped error does not match ErrNotFound")
	}
	if errors.Is(wrapped, ErrIndexIO) {
		t.Error("wrapped error matches ErrIndexIO")
	}
	if k := KindOf(wrapped); k != KindNotFound {
		t.Errorf("KindOf = %q", k)
	}
	for _, want := range []string{"/tmp/missing.txt", "stat failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not contain %q", err, want)
		}
	}
}

func TestError_UnwrapReachesCause(t *testing.T) {
	err := NewError(KindEmbeddingBackend, "embed", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("cause not reachable through Unwrap")
	}
	if !IsRetryable(err) {
		t.Error("embedding backend error should be retryable")
	}
	if IsRetryable(NewError(KindIndexIO, "open", nil)) {
		t.Error("index I/O error should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error should not be retryable")
	}
}

func TestKindOf_unclassified(t *testing.T) {
	if k := KindOf(errors.New("x")); k != "" {
		t.Errorf("KindOf = %q, want empty", k)
	}
}
