package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tenantconsole/internal/console/store"
	"github.com/aussiebroadwan/tenantconsole/pkg/idx"
	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "tenantconsole:"

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key and channel prefix, DefaultPrefix when empty
	Logger   *slog.Logger
}

// Store is a connection to the Redis server holding the shared scope.
type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewStore(opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Store{client: client, prefix: opts.Prefix, logger: opts.Logger}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) channel() string { return s.prefix + "changes" }

// envelope is the JSON body published for every change.
type envelope struct {
	Key     string    `json:"key"`
	Value   string    `json:"value,omitempty"`
	Deleted bool      `json:"deleted,omitempty"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

// Scope is one console's handle. Its subscription to the change channel
// lives as long as the handle.
type Scope struct {
	store  *Store
	origin string
	pubsub *redis.PubSub
	done   chan struct{}

	mu     sync.Mutex
	subs   map[int]func(store.Change)
	nextID int
}

var _ store.SharedScope = (*Scope)(nil)

// Open subscribes a new handle to the change channel.
func (s *Store) Open(ctx context.Context) (*Scope, error) {
	ps := s.client.Subscribe(ctx, s.channel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel(), err)
	}

	sc := &Scope{
		store:  s,
		origin: idx.New().String(),
		pubsub: ps,
		done:   make(chan struct{}),
		subs:   make(map[int]func(store.Change)),
	}
	go sc.listen()
	return sc, nil
}

func (sc *Scope) Origin() string { return sc.origin }

func (sc *Scope) key(k string) string { return sc.store.prefix + k }

func (sc *Scope) Get(ctx context.Context, key string) (string, error) {
	v, err := sc.store.client.Get(ctx, sc.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", store.ErrNotFound
	}
	return v, err
}

func (sc *Scope) Set(ctx context.Context, key, value string) error {
	msg, err := sc.encode(envelope{Key: key, Value: value})
	if err != nil {
		return err
	}
	_, err = sc.store.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sc.key(key), value, 0)
		p.Publish(ctx, sc.store.channel(), msg)
		return nil
	})
	return err
}

func (sc *Scope) Delete(ctx context.Context, key string) error {
	n, err := sc.store.client.Del(ctx, sc.key(key)).Result()
	if err != nil || n == 0 {
		return err
	}
	return sc.publish(ctx, envelope{Key: key, Deleted: true})
}

func (sc *Scope) Clear(ctx context.Context) error {
	keys, err := sc.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := sc.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (sc *Scope) Keys(ctx context.Context) ([]string, error) {
	keys := []string{}
	iter := sc.store.client.Scan(ctx, 0, sc.store.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), sc.store.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	slices.Sort(keys)
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

// Close ends the subscription and waits for the listener to exit.
func (sc *Scope) Close() error {
	err := sc.pubsub.Close()
	<-sc.done
	return err
}

func (sc *Scope) encode(e envelope) (string, error) {
	e.Origin = sc.origin
	e.At = time.Now().UTC()
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (sc *Scope) publish(ctx context.Context, e envelope) error {
	msg, err := sc.encode(e)
	if err != nil {
		return err
	}
	return sc.store.client.Publish(ctx, sc.store.channel(), msg).Err()
}

func (sc *Scope) listen() {
	defer close(sc.done)

	for msg := range sc.pubsub.Channel() {
		var e envelope
		if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
			sc.store.logger.Warn("dropping malformed change", "channel", msg.Channel, "error", err)
			continue
		}
		if e.Origin == sc.origin {
			continue
		}
		c := store.Change{Key: e.Key, Value: e.Value, Deleted: e.Deleted, Origin: e.Origin, At: e.At}
		for _, fn := range sc.subscribers() {
			fn(c)
		}
	}
}

func (sc *Scope) subscribers() []func(store.Change) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return slices.Collect(maps.Values(sc.subs))
}
