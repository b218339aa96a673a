package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryInvalidConfig, "invalid template").
			WithSeverity(SeverityFatal).
			WithContext("file", "buf.gen.yaml").
			Build()

		if err.Category() != CategoryInvalidConfig {
			t.Errorf("expected category %s, got %s", CategoryInvalidConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid template" {
			t.Errorf("expected message 'invalid template', got %s", err.Message())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "buf.gen.yaml" {
			t.Errorf("expected context file=buf.gen.yaml, got %v", file)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("locate: %w", NotFoundError("no schema files").Build())

		if !IsClassified(err) {
			t.Error("expected wrapped error to be classified")
		}
		if !HasCategory(err, CategoryNotFound) {
			t.Error("expected error to have not_found category")
		}
		if GetCategory(err) != CategoryNotFound {
			t.Errorf("expected not_found, got %s", GetCategory(err))
		}
	})

	t.Run("Unclassified falls back to internal", func(t *testing.T) {
		if GetCategory(errors.New("boom")) != CategoryInternal {
			t.Error("expected internal category for plain errors")
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	original := errors.New("exec: \"buf\": executable file not found in $PATH")
	err := WrapError(original, CategoryToolNotFound, "compiler not found").
		Fatal().
		WithContext("binary", "buf").
		Build()

	if !errors.Is(err, original) {
		t.Error("expected wrapped cause to be reachable with errors.Is")
	}
	if !err.IsFatal() {
		t.Error("expected fatal severity")
	}
	if got := MessageOf(err); got != "compiler not found: "+original.Error() {
		t.Errorf("unexpected MessageOf: %q", got)
	}
	if err.Error() != "[tool_not_found] compiler not found: "+original.Error() {
		t.Errorf("unexpected Error(): %q", err.Error())
	}
}

func TestClassifiedErrorWithContextDoesNotMutate(t *testing.T) {
	base := HookFailureError("hook failed").Build()
	derived := base.WithContext("stage", "before-generate")

	if _, ok := base.Context().Get("stage"); ok {
		t.Error("expected original context to remain unchanged")
	}
	if v, _ := derived.Context().GetString("stage"); v != "before-generate" {
		t.Errorf("expected stage context on derived error, got %q", v)
	}
}
