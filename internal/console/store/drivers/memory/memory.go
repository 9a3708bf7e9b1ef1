package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/tenantconsole/internal/console/store"
	"github.com/aussiebroadwan/tenantconsole/pkg/idx"
)

// Backing is the data shared by every handle opened on it. A single
// Backing with several handles models one storage area seen from several
// console contexts.
type Backing struct {
	mu      sync.RWMutex
	data    map[string]string
	handles map[*Scope]struct{}
}

func NewBacking() *Backing {
	return &Backing{
		data:    make(map[string]string),
		handles: make(map[*Scope]struct{}),
	}
}

// Open returns a new handle with its own origin.
func (b *Backing) Open() *Scope {
	s := &Scope{
		backing: b,
		origin:  idx.New().String(),
		subs:    make(map[int]func(store.Change)),
	}
	b.mu.Lock()
	b.handles[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// NewScope returns a private, unshared scope.
func NewScope() *Scope {
	return NewBacking().Open()
}

// Scope is one handle on a Backing.
type Scope struct {
	backing *Backing
	origin  string

	mu     sync.Mutex
	subs   map[int]func(store.Change)
	nextID int
	closed bool
}

var _ store.SharedScope = (*Scope)(nil)

func (s *Scope) Origin() string { return s.origin }

func (s *Scope) Get(_ context.Context, key string) (string, error) {
	s.backing.mu.RLock()
	defer s.backing.mu.RUnlock()

	v, ok := s.backing.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Scope) Set(_ context.Context, key, value string) error {
	s.backing.mu.Lock()
	s.backing.data[key] = value
	s.backing.mu.Unlock()

	s.broadcast([]store.Change{{Key: key, Value: value}})
	return nil
}

func (s *Scope) Delete(_ context.Context, key string) error {
	s.backing.mu.Lock()
	_, existed := s.backing.data[key]
	delete(s.backing.data, key)
	s.backing.mu.Unlock()

	if existed {
		s.broadcast([]store.Change{{Key: key, Deleted: true}})
	}
	return nil
}

func (s *Scope) Clear(_ context.Context) error {
	s.backing.mu.Lock()
	keys := slices.Sorted(maps.Keys(s.backing.data))
	clear(s.backing.data)
	s.backing.mu.Unlock()

	changes := make([]store.Change, 0, len(keys))
	for _, k := range keys {
		changes = append(changes, store.Change{Key: k, Deleted: true})
	}
	s.broadcast(changes)
	return nil
}

func (s *Scope) Keys(_ context.Context) ([]string, error) {
	s.backing.mu.RLock()
	defer s.backing.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.backing.data)), nil
}

func (s *Scope) Subscribe(fn func(store.Change)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close detaches the handle; it no longer receives changes.
func (s *Scope) Close() error {
	s.backing.mu.Lock()
	delete(s.backing.handles, s)
	s.backing.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	clear(s.subs)
	s.mu.Unlock()
	return nil
}

// broadcast delivers changes synchronously to every other handle.
func (s *Scope) broadcast(changes []store.Change) {
	if len(changes) == 0 {
		return
	}
	now := time.Now().UTC()
	for i := range changes {
		changes[i].Origin = s.origin
		changes[i].At = now
	}

	s.backing.mu.RLock()
	others := make([]*Scope, 0, len(s.backing.handles))
	for h := range s.backing.handles {
		if h != s {
			others = append(others, h)
		}
	}
	s.backing.mu.RUnlock()

	for _, h := range others {
		for _, fn := range h.subscribers() {
			for _, c := range changes {
				fn(c)
			}
		}
	}
}

func (s *Scope) subscribers() []func(store.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return slices.Collect(maps.Values(s.subs))
}
