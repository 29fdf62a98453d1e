// Package qcache serves generated questions through a read-through,
// stale-while-revalidate cache.
//
// Each (subject, topic) key holds at most one cached question. A warm
// hit is served immediately while a background regeneration refreshes
// the entry for the next reader; a cold miss waits for synchronous
// generation. Every generated question is persisted to the blob store
// under a fresh ID before the cache entry pointing at it is replaced,
// so a reader can never receive a reference to a blob that does not
// exist yet.
package qcache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepdeck/backend/internal/blob"
	"github.com/prepdeck/backend/internal/genai"
	"github.com/prepdeck/backend/internal/model"
)

const defaultGenTimeout = 90 * time.Second

type cacheKey struct {
	subject string
	topic   string
}

type cacheEntry struct {
	question      model.Question
	lastWrittenAt time.Time
}

// Coordinator is the question cache. Safe for concurrent use; the
// mutex is never held across generator or blob store calls.
type Coordinator struct {
	gen        genai.Generator
	blobs      blob.Store
	genTimeout time.Duration

	mu         sync.Mutex
	entries    map[cacheKey]cacheEntry
	refreshing map[cacheKey]struct{}
	closed     bool

	wg sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithGenTimeout sets the per-call generator timeout.
func WithGenTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.genTimeout = d }
}

// New creates a Coordinator over the given generator and blob store.
func New(gen genai.Generator, blobs blob.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		gen:        gen,
		blobs:      blobs,
		genTimeout: defaultGenTimeout,
		entries:    make(map[cacheKey]cacheEntry),
		refreshing: make(map[cacheKey]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns a question for the key, plus whether it was served
// from the cache.
//
// With forceFresh, generation is always synchronous: the result is
// persisted best-effort (a failed persist is logged and the question
// returned without a durable ID) and the cache entry is updated on
// full success. Otherwise a warm hit returns the cached question
// immediately and triggers at most one background refresh for the key;
// a cold miss generates, persists, and populates synchronously, and
// any failure propagates to the caller with no entry created.
//
// If ctx is canceled while a synchronous generation is in flight, Fetch
// returns ctx.Err() but the generation itself keeps running detached;
// a completing result is still persisted and cached for future readers.
func (c *Coordinator) Fetch(ctx context.Context, subject, topic string, forceFresh bool) (model.Question, bool, error) {
	k := cacheKey{subject: subject, topic: topic}

	if forceFresh {
		q, err := c.generateAndPersist(ctx, k, true)
		return q, false, err
	}

	c.mu.Lock()
	e, ok := c.entries[k]
	if ok {
		_, inFlight := c.refreshing[k]
		startRefresh := !inFlight && !c.closed
		if startRefresh {
			c.refreshing[k] = struct{}{}
			c.wg.Add(1)
		}
		c.mu.Unlock()
		if startRefresh {
			go c.refresh(k)
		}
		return e.question, true, nil
	}
	c.mu.Unlock()

	q, err := c.generateAndPersist(ctx, k, false)
	return q, false, err
}

// Prime forces a synchronous generate, persist, and populate for the
// key, regardless of any existing entry. Failures propagate.
func (c *Coordinator) Prime(ctx context.Context, subject, topic string) (model.Question, error) {
	return c.generateAndPersist(ctx, cacheKey{subject: subject, topic: topic}, false)
}

// Invalidate removes the entry for the key, forcing the next Fetch to
// generate synchronously. Idempotent.
func (c *Coordinator) Invalidate(subject, topic string) {
	k := cacheKey{subject: subject, topic: topic}
	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()
}

// Stats returns a snapshot of cache occupancy.
func (c *Coordinator) Stats() model.CacheStats {
	c.mu.Lock()
	counts := make(map[string]int)
	total := len(c.entries)
	for k := range c.entries {
		counts[k.subject]++
	}
	c.mu.Unlock()

	stats := model.CacheStats{Total: total}
	for subject, n := range counts {
		stats.PerSubject = append(stats.PerSubject, model.SubjectCount{Subject: subject, Count: n})
	}
	sort.Slice(stats.PerSubject, func(i, j int) bool {
		return stats.PerSubject[i].Subject < stats.PerSubject[j].Subject
	})
	return stats
}

// Close stops scheduling new background refreshes and waits for
// in-flight ones to finish.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

type genResult struct {
	question model.Question
	err      error
}

// generateAndPersist runs the synchronous generation path. The work is
// detached from ctx so that an abandoning caller does not discard a
// generation already in flight; the caller only stops waiting.
func (c *Coordinator) generateAndPersist(ctx context.Context, k cacheKey, bestEffortPersist bool) (model.Question, error) {
	ch := make(chan genResult, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ch <- c.runGeneration(context.WithoutCancel(ctx), k, bestEffortPersist)
	}()

	select {
	case <-ctx.Done():
		return model.Question{}, ctx.Err()
	case r := <-ch:
		return r.question, r.err
	}
}

// runGeneration generates one question, persists it, and updates the
// cache entry. The blob write strictly precedes the entry update.
func (c *Coordinator) runGeneration(ctx context.Context, k cacheKey, bestEffortPersist bool) genResult {
	gctx, cancel := context.WithTimeout(ctx, c.genTimeout)
	q, err := c.gen.Generate(gctx, k.subject, k.topic)
	cancel()
	if err != nil {
		return genResult{err: err}
	}

	q.ID = uuid.NewString()
	if err := c.blobs.Put(ctx, q.ID, q); err != nil {
		if !bestEffortPersist {
			return genResult{err: err}
		}
		// Best-effort outcome: the caller still gets the question,
		// but without a durable ID and without touching the cache.
		slog.Error("question persist failed, returning without durable ID",
			"subject", k.subject, "topic", k.topic, "error", err)
		q.ID = ""
		return genResult{question: q}
	}

	c.storeEntry(k, q)
	return genResult{question: q}
}

// refresh regenerates the entry for a warm key in the background.
// Failures are logged and discarded; the stale entry stays in place.
func (c *Coordinator) refresh(k cacheKey) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		delete(c.refreshing, k)
		c.mu.Unlock()
	}()

	gctx, cancel := context.WithTimeout(context.Background(), c.genTimeout)
	q, err := c.gen.Generate(gctx, k.subject, k.topic)
	cancel()
	if err != nil {
		slog.Warn("background refresh failed, keeping stale entry",
			"subject", k.subject, "topic", k.topic, "error", err)
		return
	}

	q.ID = uuid.NewString()
	if err := c.blobs.Put(context.Background(), q.ID, q); err != nil {
		slog.Warn("background refresh persist failed, keeping stale entry",
			"subject", k.subject, "topic", k.topic, "error", err)
		return
	}

	c.storeEntry(k, q)
}

// storeEntry atomically replaces the entry for k as a whole value.
func (c *Coordinator) storeEntry(k cacheKey, q model.Question) {
	c.mu.Lock()
	c.entries[k] = cacheEntry{question: q, lastWrittenAt: time.Now()}
	c.mu.Unlock()
}
