// Package watch regenerates code when schema files change.
//
// A Watcher observes the module tree and the generation config with fsnotify,
// coalesces bursts of events behind a debounce timer, and optionally triggers
// periodic runs through a gocron scheduler. Runs never overlap: a trigger that
// arrives while a run is in progress queues exactly one follow-up run.
package watch
