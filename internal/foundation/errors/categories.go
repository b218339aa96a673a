package errors

import "maps"

// ErrorCategory is the failure taxonomy of a generation run. Every failure a
// run can surface maps onto exactly one category.
type ErrorCategory string

const (
	// CategoryNotFound: the module path does not exist or holds no schema files.
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryInvalidConfig ErrorCategory = "invalid_config"

	// Workspace preparation.
	CategoryPermissionDenied ErrorCategory = "permission_denied"
	CategoryUnsafeClean      ErrorCategory = "unsafe_clean"

	// External compiler.
	CategoryToolNotFound   ErrorCategory = "tool_not_found"
	CategoryCompilerFailed ErrorCategory = "compiler_failed"

	CategoryHookFailure ErrorCategory = "hook_failure"
	CategoryCancelled   ErrorCategory = "cancelled"
	CategoryInternal    ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the run
	SeverityError   ErrorSeverity = "error"   // Fails the current stage
	SeverityWarning ErrorSeverity = "warning" // Recorded, run continues
	SeverityInfo    ErrorSeverity = "info"
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext, len(c)+len(other))
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
