package sqlite

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/tenantconsole/internal/console/store"
	"github.com/aussiebroadwan/tenantconsole/pkg/idx"
)

// pollBatch bounds how many change rows one Poll reads.
const pollBatch = 256

// Scope is one console's handle on the shared database. Every mutation is
// recorded in the changes table under the handle's origin so that other
// handles can replay it.
type Scope struct {
	store  *Store
	origin string

	mu     sync.Mutex
	cursor int64
	subs   map[int]func(store.Change)
	nextID int
}

var _ store.SharedScope = (*Scope)(nil)

// Open returns a handle with a fresh origin. Changes recorded before Open
// are never delivered to it.
func (s *Store) Open(ctx context.Context) (*Scope, error) {
	cursor, err := s.q.LatestChangeSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("read change cursor: %w", err)
	}
	return &Scope{
		store:  s,
		origin: idx.New().String(),
		cursor: cursor,
		subs:   make(map[int]func(store.Change)),
	}, nil
}

func (sc *Scope) Origin() string { return sc.origin }

func (sc *Scope) Get(ctx context.Context, key string) (string, error) {
	v, err := sc.store.q.GetValue(ctx, key)
	if err != nil {
		return "", mapNotFound(err)
	}
	return v, nil
}

func (sc *Scope) Set(ctx context.Context, key, value string) error {
	now := time.Now().UnixMilli()
	return sc.store.WithTx(ctx, func(q *Queries) error {
		if err := q.UpsertValue(ctx, key, value, now); err != nil {
			return err
		}
		return q.InsertChange(ctx, changeRow{Key: key, Value: value, Origin: sc.origin, CreatedAt: now})
	})
}

func (sc *Scope) Delete(ctx context.Context, key string) error {
	now := time.Now().UnixMilli()
	return sc.store.WithTx(ctx, func(q *Queries) error {
		n, err := q.DeleteValue(ctx, key)
		if err != nil || n == 0 {
			return err
		}
		return q.InsertChange(ctx, changeRow{Key: key, Deleted: true, Origin: sc.origin, CreatedAt: now})
	})
}

func (sc *Scope) Clear(ctx context.Context) error {
	now := time.Now().UnixMilli()
	return sc.store.WithTx(ctx, func(q *Queries) error {
		keys, err := q.ListKeys(ctx)
		if err != nil {
			return err
		}
		if err := q.DeleteAllValues(ctx); err != nil {
			return err
		}
		for _, k := range keys {
			if err := q.InsertChange(ctx, changeRow{Key: k, Deleted: true, Origin: sc.origin, CreatedAt: now}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (sc *Scope) Keys(ctx context.Context) ([]string, error) {
	keys, err := sc.store.q.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (sc *Scope) Subscribe(fn func(store.Change)) (cancel func()) {
	sc.mu.Lock()
	id := sc.nextID
	sc.nextID++
	sc.subs[id] = fn
	sc.mu.Unlock()

	return func() {
		sc.mu.Lock()
		delete(sc.subs, id)
		sc.mu.Unlock()
	}
}

// Close releases the handle. The underlying Store stays open.
func (sc *Scope) Close() error {
	sc.mu.Lock()
	clear(sc.subs)
	sc.mu.Unlock()
	return nil
}

// Poll reads changes recorded since the last call and delivers those made
// by other handles to the subscribers. It returns the number delivered.
func (sc *Scope) Poll(ctx context.Context) (int, error) {
	sc.mu.Lock()
	cursor := sc.cursor
	sc.mu.Unlock()

	delivered := 0
	for {
		rows, err := sc.store.q.ListChangesAfter(ctx, cursor, pollBatch)
		if err != nil {
			return delivered, fmt.Errorf("list changes: %w", err)
		}

		for _, row := range rows {
			cursor = row.Seq
			if row.Origin == sc.origin {
				continue
			}
			c := store.Change{
				Key:     row.Key,
				Value:   row.Value,
				Deleted: row.Deleted,
				Origin:  row.Origin,
				At:      time.UnixMilli(row.CreatedAt).UTC(),
			}
			for _, fn := range sc.subscribers() {
				fn(c)
			}
			delivered++
		}

		sc.mu.Lock()
		sc.cursor = cursor
		sc.mu.Unlock()

		if len(rows) < pollBatch {
			return delivered, nil
		}
	}
}

func (sc *Scope) subscribers() []func(store.Change) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return slices.Collect(maps.Values(sc.subs))
}
