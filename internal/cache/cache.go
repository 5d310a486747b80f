// Package cache keeps decoded images in memory under a byte budget and
// decodes neighbours of the current image in the background.
//
// All bookkeeping lives behind one mutex. Decodes run on a fixed worker pool
// and at most one decode per path is in flight: later requests for the same
// path attach to the running one. A Get for an uncached path blocks the
// caller until its decode finishes; that is the one intentionally
// synchronous path, so the current image is never shown half-loaded.
package cache

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"peek/internal/decoder"
	"peek/internal/failure"
	"peek/internal/logger"
)

// Decoder produces the result for one path
type Decoder interface {
	Decode(path string) decoder.Result
}

// Options bounds the cache
type Options struct {
	BudgetBytes int64
	Workers     int
	// MaxEntries caps the number of entries, failures included. Zero means
	// no cap besides the byte budget.
	MaxEntries int
}

// DefaultOptions returns a 512 MiB budget and up to four workers.
func DefaultOptions() Options {
	return Options{
		BudgetBytes: 512 << 20,
		Workers:     min(4, runtime.NumCPU()),
		MaxEntries:  256,
	}
}

// Stats provides statistics about cache use
type Stats struct {
	Hits      uint64
	Misses    uint64
	Decodes   uint64
	Failures  uint64
	Evictions uint64
	Resident  int64
	Budget    int64
	Entries   int
	Queued    int
}

type entry struct {
	result   decoder.Result
	size     int64
	inFlight bool
}

// Cache maps paths to decode results.
type Cache struct {
	dec  Decoder
	opts Options

	mu       sync.Mutex
	entries  *simplelru.LRU[string, *entry]
	resident int64
	current  string
	gen      uint64
	stats    Stats

	flight singleflight.Group
	pool   *pool
}

// New starts the worker pool. Call Close to stop it.
func New(dec Decoder, opts Options) (*Cache, error) {
	if opts.BudgetBytes <= 0 {
		return nil, errors.New("cache budget must be positive")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = math.MaxInt32
	}

	c := &Cache{dec: dec, opts: opts}
	// capacity is enforced by evictLocked, which knows about pinned entries
	entries, err := simplelru.NewLRU[string, *entry](math.MaxInt32, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("creating LRU: %w", err)
	}
	c.entries = entries
	c.pool = newPool(opts.Workers)
	return c, nil
}

func (c *Cache) onEvict(_ string, e *entry) {
	c.resident -= e.size
}

// Get returns the result for path, decoding it on the pool and waiting for
// it when it is not cached. A decode already in flight for path is joined
// rather than repeated.
func (c *Cache) Get(path string) decoder.Result {
	c.mu.Lock()
	e, ok := c.entries.Get(path)
	if ok && !e.inFlight {
		c.stats.Hits++
		n := c.entries.Len()
		c.mu.Unlock()
		logger.Debug("Cache HIT: %s (cache: %d items)", path, n)
		return e.result
	}
	gen := c.gen
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.mu.Unlock()

	if ok {
		return c.flightLoad(path, gen)
	}

	logger.Debug("Cache MISS: %s", path)
	c.pool.cancel(path)
	var res decoder.Result
	j := newJob(path, true, func() { res = c.flightLoad(path, gen) })
	c.pool.push(j)
	c.pool.wait(j)
	return res
}

// Peek returns the cached result without touching recency or decoding. An
// in-flight entry reports Pending.
func (c *Cache) Peek(path string) (decoder.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(path)
	if !ok {
		return decoder.Result{}, false
	}
	if e.inFlight {
		return decoder.PendingResult(), true
	}
	return e.result, true
}

// RequestPrefetch queues background decodes in the given order, skipping
// paths that are cached, in flight or already queued.
func (c *Cache) RequestPrefetch(paths []string) {
	c.mu.Lock()
	gen := c.gen
	var todo []string
	for _, p := range paths {
		if !c.entries.Contains(p) {
			todo = append(todo, p)
		}
	}
	c.mu.Unlock()

	for _, p := range todo {
		path := p
		if c.pool.push(newJob(path, false, func() { c.prefetch(path, gen) })) {
			logger.Debug("Prefetch queued: %s", path)
		}
	}
}

func (c *Cache) prefetch(path string, gen uint64) {
	c.mu.Lock()
	stale := c.gen != gen
	present := c.entries.Contains(path)
	c.mu.Unlock()
	if stale || present {
		return
	}
	c.flightLoad(path, gen)
}

// CancelPrefetch drops a queued prefetch of path. A decode that already
// started is left to finish and its result is kept.
func (c *Cache) CancelPrefetch(path string) {
	if c.pool.cancel(path) {
		logger.Debug("Prefetch cancelled: %s", path)
	}
}

// InvalidateAll drops every entry and queued prefetch. Decodes still
// running finish but their results are discarded.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.gen++
	c.entries.Purge()
	c.resident = 0
	c.current = ""
	c.mu.Unlock()

	n := c.pool.cancelAll()
	logger.Debug("Cache invalidated, %d queued prefetches dropped", n)
}

// SetCurrent pins path: it is never evicted while it stays current.
func (c *Cache) SetCurrent(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = path
	c.evictLocked()
}

// Len returns the number of entries, in-flight ones included
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Stats returns a snapshot of the counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	s := c.stats
	s.Resident = c.resident
	s.Budget = c.opts.BudgetBytes
	s.Entries = c.entries.Len()
	c.mu.Unlock()
	s.Queued = c.pool.len()
	return s
}

// Close stops the workers, waiting for running decodes to return. Get keeps
// working afterwards by decoding on the caller.
func (c *Cache) Close() {
	c.pool.close()
}

// flightResult is what a shared decode hands to everyone who joined it
type flightResult struct {
	gen uint64
	res decoder.Result
}

// flightLoad runs load with at most one decode per path in flight, whatever
// its generation. A caller that joined a decode started before the last
// InvalidateAll waits for it to finish and then decodes again.
func (c *Cache) flightLoad(path string, gen uint64) decoder.Result {
	for {
		v, _, _ := c.flight.Do(path, func() (any, error) {
			return flightResult{gen: gen, res: c.load(path, gen)}, nil
		})
		f := v.(flightResult)
		if f.gen == gen || c.generation() != gen {
			return f.res
		}
	}
}

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// load decodes path unless a result for this generation is already stored.
// It must only run inside flightLoad, which keeps it single per path.
func (c *Cache) load(path string, gen uint64) decoder.Result {
	c.mu.Lock()
	var e *entry
	if c.gen == gen {
		if cached, ok := c.entries.Peek(path); ok && !cached.inFlight {
			c.mu.Unlock()
			return cached.result
		}
		e = &entry{result: decoder.PendingResult(), inFlight: true}
		c.entries.Add(path, e)
	}
	c.stats.Decodes++
	c.mu.Unlock()

	res := c.decode(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Status == decoder.Failed {
		c.stats.Failures++
	}
	if e == nil || c.gen != gen {
		logger.Debug("Discarding stale decode of %s", path)
		return res
	}

	e.result = res
	e.size = res.Size()
	e.inFlight = false
	c.resident += e.size
	c.entries.Get(path)
	logger.WithFields(logger.Fields{
		"path":     path,
		"status":   res.Status.String(),
		"bytes":    e.size,
		"resident": c.resident,
	}).Debug("Decoded")
	c.evictLocked()
	return res
}

func (c *Cache) decode(path string) (res decoder.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = decoder.Fail(failure.CorruptData, path, fmt.Errorf("decoder panic: %v", r))
		}
	}()
	return c.dec.Decode(path)
}

// evictLocked drops least recently used entries until the cache is within
// budget. The current entry and in-flight entries are skipped; if nothing
// else is left the cache stays over budget.
func (c *Cache) evictLocked() {
	over := func() (bytes, count bool) {
		return c.resident > c.opts.BudgetBytes, c.entries.Len() > c.opts.MaxEntries
	}
	if b, n := over(); !b && !n {
		return
	}

	for _, key := range c.entries.Keys() {
		overBytes, overCount := over()
		if !overBytes && !overCount {
			return
		}
		e, ok := c.entries.Peek(key)
		if !ok || key == c.current || e.inFlight {
			continue
		}
		// empty entries only go when there are too many
		if !overCount && e.size == 0 {
			continue
		}
		c.entries.Remove(key)
		c.stats.Evictions++
		logger.Debug("Evicted %s (%d bytes, resident %d)", key, e.size, c.resident)
	}
}
