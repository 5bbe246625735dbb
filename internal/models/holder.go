// Package models provides lazily constructed, process-wide handles for the
// heavyweight model collaborators (separation, transcription, synthesis).
//
// A Holder constructs its value at most once, even under concurrent first
// use, and serializes every call that touches the underlying device.
package models

import (
	"context"
	"sync"
)

// Releaser is implemented by handles that can free accelerator memory
// between videos without being torn down.
type Releaser interface {
	Release(ctx context.Context) error
}

// Factory constructs a model handle.
type Factory[T any] func(ctx context.Context) (T, error)

// Holder is a lazily initialized, mutex-guarded model handle.
type Holder[T any] struct {
	name    string
	factory Factory[T]

	initMu sync.Mutex
	ready  bool
	value  T

	// useMu serializes device access across workers.
	useMu sync.Mutex
}

// NewHolder returns a Holder that builds its value with factory on first use.
func NewHolder[T any](name string, factory Factory[T]) *Holder[T] {
	return &Holder[T]{name: name, factory: factory}
}

// Name returns the holder's label.
func (h *Holder[T]) Name() string {
	return h.name
}

// GetOrCreate returns the handle, constructing it on first call. A failed
// construction is not cached; the next call retries.
func (h *Holder[T]) GetOrCreate(ctx context.Context) (T, error) {
	h.initMu.Lock()
	defer h.initMu.Unlock()
	if h.ready {
		return h.value, nil
	}
	value, err := h.factory(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	h.value = value
	h.ready = true
	return value, nil
}

// Warm constructs the handle eagerly and discards it.
func (h *Holder[T]) Warm(ctx context.Context) error {
	_, err := h.GetOrCreate(ctx)
	return err
}

// Do runs fn with exclusive access to the handle.
func (h *Holder[T]) Do(ctx context.Context, fn func(T) error) error {
	value, err := h.GetOrCreate(ctx)
	if err != nil {
		return err
	}
	h.useMu.Lock()
	defer h.useMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(value)
}

// Release frees accelerator memory held by the handle if it has been
// constructed and supports it. The handle stays usable.
func (h *Holder[T]) Release(ctx context.Context) error {
	h.initMu.Lock()
	ready, value := h.ready, h.value
	h.initMu.Unlock()
	if !ready {
		return nil
	}
	releaser, ok := any(value).(Releaser)
	if !ok {
		return nil
	}
	h.useMu.Lock()
	defer h.useMu.Unlock()
	return releaser.Release(ctx)
}

// Warmer is the non-generic view of a Holder used by the fleet warm-up.
type Warmer interface {
	Name() string
	Warm(ctx context.Context) error
	Release(ctx context.Context) error
}
