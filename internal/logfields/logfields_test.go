package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r-1", RunID("r-1")},
		{"Stage", KeyStage, "before-generate", Stage("before-generate")},
		{"State", KeyState, "located", State("located")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Module", KeyModule, "/src/api", Module("/src/api")},
		{"OutputDir", KeyOutputDir, "gen", OutputDir("gen")},
		{"Hook", KeyHook, "lint", Hook("lint")},
		{"Category", KeyCategory, "not_found", Category("not_found")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if tc.attr.Value.String() != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %s", tc.name, tc.attrVal, tc.attr.Value.String())
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := ExitCode(3); a.Key != KeyExitCode || a.Value.Int64() != 3 {
		t.Fatalf("unexpected exit code attr: %v", a)
	}
	if a := HookIndex(1); a.Key != KeyHookIndex || a.Value.Int64() != 1 {
		t.Fatalf("unexpected hook index attr: %v", a)
	}
	if a := DurationMS(12.5); a.Value.Float64() != 12.5 {
		t.Fatalf("unexpected duration attr: %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("expected empty error value, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("expected boom, got %q", a.Value.String())
	}
}
