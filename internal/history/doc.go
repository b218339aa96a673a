// Package history persists generation runs in SQLite so `getbuf history`
// can show recent outcomes.
//
// Each run is one row in runs, with its JSON report document, plus one row per
// observed stage in stage_events. The Observer adapts a Store into a
// pipeline.Observer; recording failures are logged and never affect the run.
package history
