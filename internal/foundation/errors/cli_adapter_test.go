package errors

import (
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "not found", err: NotFoundError("missing").Build(), expected: 2},
		{name: "invalid config", err: InvalidConfigError("bad yaml").Build(), expected: 2},
		{name: "permission denied", err: PermissionDeniedError("read-only").Build(), expected: 5},
		{name: "unsafe clean", err: UnsafeCleanError("outside root").Build(), expected: 5},
		{name: "tool not found", err: ToolNotFoundError("no buf").Build(), expected: 127},
		{name: "hook failure", err: HookFailureError("hook").Build(), expected: 3},
		{name: "cancelled", err: CancelledError("interrupted").Build(), expected: 130},
		{name: "internal", err: InternalError("bug").Build(), expected: 10},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		err      error
		contains string
	}{
		{name: "nil error", err: nil, contains: ""},
		{name: "user-facing category", err: UnsafeCleanError("refusing to clean /").Build(), contains: "refusing to clean /"},
		{name: "internal non-verbose", err: InternalError("nil template").Build(), contains: "use -v for details"},
		{name: "internal verbose", verbose: true, err: InternalError("nil template").Build(), contains: "nil template"},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, contains: "ERROR: unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCLIErrorAdapter(tt.verbose, slog.Default()).FormatError(tt.err)
			if tt.contains == "" {
				if got != "" {
					t.Errorf("FormatError() = %q, want empty string", got)
				}
				return
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("FormatError() = %q, want to contain %q", got, tt.contains)
			}
		})
	}
}

// customError is a test helper for unclassified errors
type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
