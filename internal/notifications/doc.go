// Package notifications pushes fleet events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to guard their notification calls.
package notifications
