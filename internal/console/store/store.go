package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrClosed   = errors.New("store: closed")
)

// Scope is a flat string key/value area, the console's equivalent of a
// browser storage area. Each driver hands out handles; a handle is what a
// single console context reads and writes through.
type Scope interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key, value string) error

	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error

	// Clear removes every key in the scope.
	Clear(ctx context.Context) error

	Keys(ctx context.Context) ([]string, error)
}

// Change describes one mutation of a shared scope.
type Change struct {
	Key     string
	Value   string // new value; empty when Deleted
	Deleted bool
	Origin  string // handle that made the change
	At      time.Time
}

// Notifier is implemented by scopes that can be shared between contexts.
//
// Subscribers only hear about changes made through other handles, the same
// way a browser tab never receives storage events for its own writes.
type Notifier interface {
	Subscribe(fn func(Change)) (cancel func())
}

// SharedScope is a Scope that reports foreign writes.
type SharedScope interface {
	Scope
	Notifier

	// Origin identifies this handle in the Change records it produces.
	Origin() string

	Close() error
}
