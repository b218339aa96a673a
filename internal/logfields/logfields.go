package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyPath       = "path"
	KeyModule     = "module"
	KeyOutputDir  = "output_dir"
	KeyHook       = "hook"
	KeyHookIndex  = "hook_index"
	KeyExitCode   = "exit_code"
	KeyCategory   = "category"
	KeyDurationMS = "duration_ms"
	KeyCommand    = "command"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Module(m string) slog.Attr       { return slog.String(KeyModule, m) }
func OutputDir(d string) slog.Attr    { return slog.String(KeyOutputDir, d) }
func Hook(name string) slog.Attr      { return slog.String(KeyHook, name) }
func HookIndex(i int) slog.Attr       { return slog.Int(KeyHookIndex, i) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Command(argv []string) slog.Attr { return slog.Any(KeyCommand, argv) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
