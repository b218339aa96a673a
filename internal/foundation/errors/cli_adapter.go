package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Exit codes reported by the CLI for each failure category.
const (
	ExitOK           = 0
	ExitGeneral      = 1
	ExitUsage        = 2 // not_found, invalid_config
	ExitHookFailure  = 3
	ExitWorkspace    = 5 // permission_denied, unsafe_clean
	ExitInternal     = 10
	ExitToolNotFound = 127
	ExitCancelled    = 130
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	if classified, ok := AsClassified(err); ok {
		return ExitCodeForCategory(classified.Category())
	}
	return ExitGeneral
}

// ExitCodeForCategory maps a category to its process exit code. Compiler
// failures normally carry the compiler's own exit code; ExitGeneral is the
// fallback when that code is unavailable.
func ExitCodeForCategory(category ErrorCategory) int {
	switch category {
	case CategoryNotFound, CategoryInvalidConfig:
		return ExitUsage
	case CategoryPermissionDenied, CategoryUnsafeClean:
		return ExitWorkspace
	case CategoryToolNotFound:
		return ExitToolNotFound
	case CategoryHookFailure:
		return ExitHookFailure
	case CategoryCancelled:
		return ExitCancelled
	case CategoryInternal:
		return ExitInternal
	default:
		return ExitGeneral
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("ERROR: %v", err)
	}
	if a.verbose || classified.Category() != CategoryInternal {
		return fmt.Sprintf("ERROR: %s", MessageOf(classified))
	}
	return "ERROR: internal error occurred (use -v for details)"
}

// HandleError logs and prints err, then exits the process with the mapped code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	a.logError(err)
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	os.Exit(a.ExitCodeFor(err))
}

func (a *CLIErrorAdapter) logError(err error) {
	if classified, ok := AsClassified(err); ok {
		attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
		for k, v := range classified.Context() {
			attrs = append(attrs, slog.Any(k, v))
		}
		a.logger.LogAttrs(context.Background(), slogLevelFromSeverity(classified.Severity()), classified.Message(), attrs...)
		return
	}
	a.logger.Error("Unclassified error", "error", err)
}

func slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
