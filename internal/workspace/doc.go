// Package workspace owns the output directory lifecycle of a generation run.
//
// Prepare guarantees an output directory exists and is writable. With clean
// requested it first removes the directory's contents (never the directory
// itself) and recreates the configured subdirectories. Cleaning is refused
// with an unsafe_clean error when the resolved target is the filesystem root,
// the project root, or anything outside the project root.
//
// The guard is purely path based. Two runs cleaning the same output directory
// at the same time may race; callers must serialize such runs themselves.
package workspace
