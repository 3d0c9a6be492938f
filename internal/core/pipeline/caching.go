package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingBehavior serves repeated queries from an expirable LRU keyed by operation, tenant
// and the query's cache key. Purge is wired as a commit hook of the Transaction behavior so
// that any committed command invalidates cached reads.
type CachingBehavior struct {
	cache *expirable.LRU[string, Result]

	mu sync.Mutex
	// generation counts purges; a result read across a purge is not cached.
	generation uint64
}

// NewCachingBehavior creates a cache holding at most size results for ttl each.
func NewCachingBehavior(size int, ttl time.Duration) *CachingBehavior {
	return &CachingBehavior{cache: expirable.NewLRU[string, Result](size, nil, ttl)}
}

func (b *CachingBehavior) Name() string                 { return "caching" }
func (b *CachingBehavior) Priority() int                { return PriorityCaching }
func (b *CachingBehavior) AppliesTo(d *Descriptor) bool { return d.Cacheable() }

func (b *CachingBehavior) Handle(ctx context.Context, call *Call, next Next) Result {
	key, err := call.Descriptor.cacheKey(call.Command.Payload)
	if err != nil {
		return FromError(err)
	}
	cacheKey := call.Command.Type + "|" + call.Actor.TenantID + "|" + key
	if cached, ok := b.cache.Get(cacheKey); ok {
		return cached
	}
	gen := b.currentGeneration()
	res := next(ctx)
	if res.Success {
		b.addIfCurrent(gen, cacheKey, res)
	}
	return res
}

func (b *CachingBehavior) currentGeneration() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

func (b *CachingBehavior) addIfCurrent(gen uint64, key string, res Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation == gen {
		b.cache.Add(key, res)
	}
}

// Purge drops every cached result.
func (b *CachingBehavior) Purge() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	b.cache.Purge()
}

// Len is the number of cached results.
func (b *CachingBehavior) Len() int {
	return b.cache.Len()
}
