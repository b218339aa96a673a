// Package notify publishes run summaries to NATS after generation.
package notify
