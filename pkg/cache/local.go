package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/causalorder/pkg/observability"
)

// Entry is a cached evaluation result. Score entries use Value; test entries
// use Independent and store the p-value in Value.
type Entry struct {
	Value       float64 `json:"value"`
	Independent bool    `json:"independent,omitempty"`
}

// ComputeFunc evaluates an entry on a cache miss. Errors are returned to
// the caller and never cached.
type ComputeFunc func() (Entry, error)

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	StoreHits int64 `json:"store_hits"`
	Evictions int64 `json:"evictions"`
	Errors    int64 `json:"errors"`
	Disabled  bool  `json:"disabled,omitempty"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

const defaultShards = 16

type options struct {
	capacity int
	shards   int
	store    Cache
	keyer    Keyer
	ttl      time.Duration
	disabled bool
}

// Option configures a [LocalCache].
type Option func(*options)

// WithCapacity bounds the number of entries. Zero or negative means
// unbounded.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithShards sets the number of independently locked shards.
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithStore adds a second-level store. Keys are namespaced by keyer and
// written with ttl.
func WithStore(store Cache, keyer Keyer, ttl time.Duration) Option {
	return func(o *options) {
		o.store = store
		o.keyer = keyer
		o.ttl = ttl
	}
}

// WithDisabled turns the cache into a pass-through that computes every
// lookup. Stats still count misses and errors.
func WithDisabled(disabled bool) Option {
	return func(o *options) { o.disabled = disabled }
}

// LocalCache is a concurrency-safe in-memory evaluation cache.
//
// Thread Safety:
//
//	LocalCache is safe for concurrent use. Each shard has its own mutex;
//	counters are atomic.
type LocalCache struct {
	shards []*shard
	flight singleflight.Group
	opts   options

	hits      atomic.Int64
	misses    atomic.Int64
	storeHits atomic.Int64
	evictions atomic.Int64
	errs      atomic.Int64
}

type shard struct {
	mu       sync.Mutex
	items    map[Key]*item
	lru      *list.List
	capacity int
}

type item struct {
	key   Key
	entry Entry
	refs  int
	elem  *list.Element
}

// NewLocalCache creates a cache.
func NewLocalCache(opts ...Option) *LocalCache {
	o := options{shards: defaultShards}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity > 0 && o.shards > o.capacity {
		o.shards = o.capacity
	}

	c := &LocalCache{shards: make([]*shard, o.shards), opts: o}
	for i := range c.shards {
		s := &shard{items: make(map[Key]*item), lru: list.New()}
		if o.capacity > 0 {
			// Spread the capacity so the shard bounds sum to exactly o.capacity.
			s.capacity = o.capacity / o.shards
			if i < o.capacity%o.shards {
				s.capacity++
			}
		}
		c.shards[i] = s
	}
	return c
}

func noRelease() {}

// Get returns the entry for key, computing it on a miss.
func (c *LocalCache) Get(ctx context.Context, key Key, compute ComputeFunc) (Entry, error) {
	e, _, err := c.get(ctx, key, compute, false)
	return e, err
}

// Acquire is Get that also pins the entry: it cannot be evicted until the
// returned release function is called. Release is idempotent.
func (c *LocalCache) Acquire(ctx context.Context, key Key, compute ComputeFunc) (Entry, func(), error) {
	return c.get(ctx, key, compute, true)
}

// Lookup returns a cached entry without computing or touching counters.
func (c *LocalCache) Lookup(key Key) (Entry, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok {
		return Entry{}, false
	}
	return it.entry, true
}

func (c *LocalCache) get(ctx context.Context, key Key, compute ComputeFunc, pin bool) (Entry, func(), error) {
	if c.opts.disabled {
		c.misses.Add(1)
		e, err := compute()
		if err != nil {
			c.errs.Add(1)
		}
		return e, noRelease, err
	}

	s := c.shardFor(key)
	if e, release, ok := c.hit(s, key, pin); ok {
		c.hits.Add(1)
		observability.Cache().OnCacheHit(ctx, key.Type())
		return e, release, nil
	}

	c.misses.Add(1)
	observability.Cache().OnCacheMiss(ctx, key.Type())

	v, err, _ := c.flight.Do(key.String(), func() (any, error) {
		if e, ok := c.load(ctx, key); ok {
			c.storeHits.Add(1)
			return e, nil
		}
		e, err := compute()
		if err != nil {
			return Entry{}, err
		}
		c.save(ctx, key, e)
		return e, nil
	})
	if err != nil {
		c.errs.Add(1)
		return Entry{}, noRelease, err
	}

	e := v.(Entry)
	release := c.insert(ctx, s, key, e, pin)
	return e, release, nil
}

func (c *LocalCache) shardFor(key Key) *shard {
	if len(c.shards) == 1 {
		return c.shards[0]
	}
	return c.shards[xxhash.Sum64String(key.String())%uint64(len(c.shards))]
}

func (c *LocalCache) hit(s *shard, key Key, pin bool) (Entry, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok {
		return Entry{}, nil, false
	}
	s.lru.MoveToFront(it.elem)
	if !pin {
		return it.entry, noRelease, true
	}
	it.refs++
	return it.entry, s.releaser(it), true
}

func (c *LocalCache) insert(ctx context.Context, s *shard, key Key, e Entry, pin bool) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[key]
	if !ok {
		it = &item{key: key, entry: e}
		it.elem = s.lru.PushFront(it)
		s.items[key] = it
	}
	release := noRelease
	if pin {
		it.refs++
		release = s.releaser(it)
	}

	for s.capacity > 0 && len(s.items) > s.capacity {
		if !s.evictOne() {
			// Everything left is pinned; allow overflow until released.
			break
		}
		c.evictions.Add(1)
		observability.Cache().OnCacheEvict(ctx, key.Type())
	}
	return release
}

// evictOne removes the least recently used unpinned item. The shard lock
// must be held.
func (s *shard) evictOne() bool {
	for el := s.lru.Back(); el != nil; el = el.Prev() {
		it := el.Value.(*item)
		if it.refs > 0 {
			continue
		}
		s.lru.Remove(el)
		delete(s.items, it.key)
		return true
	}
	return false
}

func (s *shard) releaser(it *item) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			it.refs--
			s.mu.Unlock()
		})
	}
}

// load reads an entry from the second-level store. Store errors count as
// misses.
func (c *LocalCache) load(ctx context.Context, key Key) (Entry, bool) {
	if c.opts.store == nil {
		return Entry{}, false
	}
	data, ok, err := c.opts.store.Get(ctx, c.opts.keyer.StoreKey(key))
	if err != nil || !ok {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

// save writes an entry through to the second-level store, best effort.
func (c *LocalCache) save(ctx context.Context, key Key, e Entry) {
	if c.opts.store == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.opts.store.Set(ctx, c.opts.keyer.StoreKey(key), data, c.opts.ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, key.Type(), len(data))
	}
}

// Len returns the number of cached entries.
func (c *LocalCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

// Stats returns current counters.
func (c *LocalCache) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Capacity:  c.opts.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		StoreHits: c.storeHits.Load(),
		Evictions: c.evictions.Load(),
		Errors:    c.errs.Load(),
		Disabled:  c.opts.disabled,
	}
}
