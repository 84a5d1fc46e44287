// Package inbound routes verified processor events to per-concern handlers.
//
// Handlers never trust delivery order or uniqueness. Each one looks up the
// durable row keyed by the event's natural id before mutating anything, so a
// redelivery either resumes where the last attempt stopped or is a no-op.
package inbound
