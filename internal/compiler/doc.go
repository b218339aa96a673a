// Package compiler wraps the external schema compiler (buf).
//
// Template parses the generation config (buf.gen.yaml) attached to a located
// module set. Invoke runs `buf generate` once and captures its exit status and
// output streams. A non-zero exit is a normal outcome encoded in the
// InvocationResult; only an unresolvable executable or cancellation are
// returned as errors. Invocations are never retried.
package compiler
