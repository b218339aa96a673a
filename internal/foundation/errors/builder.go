package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

// WithCause sets the underlying error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors, one per failure category.

// NotFoundError creates an error for a missing module path or schema files.
func NotFoundError(message string) *ErrorBuilder {
	return NewError(CategoryNotFound, message).Fatal()
}

// InvalidConfigError creates an error for a missing or malformed generation config.
func InvalidConfigError(message string) *ErrorBuilder {
	return NewError(CategoryInvalidConfig, message).Fatal()
}

// PermissionDeniedError creates an error for an output directory that cannot be created or written.
func PermissionDeniedError(message string) *ErrorBuilder {
	return NewError(CategoryPermissionDenied, message).Fatal()
}

// UnsafeCleanError creates an error for a clean target outside the project boundary.
func UnsafeCleanError(message string) *ErrorBuilder {
	return NewError(CategoryUnsafeClean, message).Fatal()
}

// ToolNotFoundError creates an error for a compiler executable that cannot be resolved.
func ToolNotFoundError(message string) *ErrorBuilder {
	return NewError(CategoryToolNotFound, message).Fatal()
}

// CompilerFailedError creates an error for a non-zero compiler exit.
func CompilerFailedError(message string) *ErrorBuilder {
	return NewError(CategoryCompilerFailed, message)
}

// HookFailureError creates an error for a failing hook.
func HookFailureError(message string) *ErrorBuilder {
	return NewError(CategoryHookFailure, message)
}

// CancelledError creates an error for an interrupted run.
func CancelledError(message string) *ErrorBuilder {
	return NewError(CategoryCancelled, message).Fatal()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
