// Package locator resolves a source directory into the set of protobuf module
// roots handed to the compiler.
//
// Locate is read-only. It validates that the generation config exists and is a
// readable file but never parses it; parsing belongs to the compiler package.
package locator
