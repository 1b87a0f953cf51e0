// Package pipeline wires the classifier's sub-components — Store,
// LM Client, rate limiter, work queue, and worker pool — into the
// single unit spec.md §4.3 calls the Classifier Pipeline, and exposes
// the core-exposed interfaces of spec.md §6.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cookiesolver/cookiesolver/internal/classifier/lmclient"
	"github.com/cookiesolver/cookiesolver/internal/classifier/queue"
	"github.com/cookiesolver/cookiesolver/internal/classifier/ratelimit"
	"github.com/cookiesolver/cookiesolver/internal/classifier/store"
	"github.com/cookiesolver/cookiesolver/internal/logger"
	"github.com/cookiesolver/cookiesolver/pkg/descriptor"
)

// ShutdownGrace bounds how long Stop waits for in-flight work before
// force-terminating, spec.md §5.
const ShutdownGrace = 5 * time.Second

// Stats mirrors spec.md §4.3's atomic counters.
type Stats struct {
	QueueSize int64
	InFlight  int64
	Processed int64
	CacheHits int64
	AIQueries int64
}

// CacheHitRate is cache_hits / processed, 0 when processed == 0,
// spec.md §4.3.
func (s Stats) CacheHitRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.Processed)
}

// Pipeline is the classifier's runtime: a fixed worker pool draining
// a bounded queue, gated by a token-bucket rate limiter, backed by a
// persistent Store.
type Pipeline struct {
	store   *store.Store
	lm      lmclient.Client
	limiter *ratelimit.Limiter
	queue   *queue.Queue
	log     logger.Logger

	workers int
	stop    chan struct{}
	wg      sync.WaitGroup

	processed, cacheHits, aiQueries int64
}

// New constructs a Pipeline. workers and queueCapacity come from
// config.Config.Classifier; rateCapacity from the same.
func New(st *store.Store, lm lmclient.Client, workers, queueCapacity, rateCapacity int, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	if workers > 10 {
		workers = 10
	}
	return &Pipeline{
		store:   st,
		lm:      lm,
		limiter: ratelimit.New(rateCapacity),
		queue:   queue.New(queueCapacity, log),
		log:     log,
		workers: workers,
		stop:    make(chan struct{}),
	}
}

// Start launches the fixed worker pool, spec.md §4.3's "Workers".
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
}

// Stop signals shutdown and waits up to ShutdownGrace for workers to
// drain, spec.md §5: "Shutdown waits ≤5 seconds, then
// force-terminates."
func (p *Pipeline) Stop() {
	close(p.stop)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(ShutdownGrace):
		p.log.Warn("classifier shutdown grace period elapsed, force-terminating")
	}
}

func (p *Pipeline) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		task, ok := p.queue.Dequeue(ctx)
		if !ok {
			continue // poll timeout or no task; check stop flag again
		}
		p.process(ctx, task)
	}
}

func (p *Pipeline) process(ctx context.Context, t queue.Task) {
	defer p.queue.Done(t.Identity())

	if !t.ForceRefresh {
		if _, ok, err := p.store.LookupByExactName(t.Name); err == nil && ok {
			atomic.AddInt64(&p.cacheHits, 1)
			atomic.AddInt64(&p.processed, 1)
			return
		} else if d, ok, err := p.store.LookupByPattern(t.Name); err == nil && ok {
			_ = d
			atomic.AddInt64(&p.cacheHits, 1)
			atomic.AddInt64(&p.processed, 1)
			return
		}
	}

	if err := p.limiter.Acquire(ctx); err != nil {
		return // shutdown or ctx cancelled before a token was available
	}

	atomic.AddInt64(&p.aiQueries, 1)
	d, raw, err := p.lm.Classify(ctx, t.Name, t.Domain)
	if err != nil {
		p.log.Warn("lm classify failed", "name", t.Name, "domain", t.Domain, "error", err.Error())
		atomic.AddInt64(&p.processed, 1)
		return
	}

	if err := p.store.UpsertDescriptor(d); err != nil {
		p.log.Error("store upsert failed", "name", t.Name, "error", err.Error())
	}
	if err := p.store.CacheAIResponse(t.Name, t.Domain, raw); err != nil {
		p.log.Error("store cache-response failed", "name", t.Name, "error", err.Error())
	}
	atomic.AddInt64(&p.processed, 1)
}

// Submit enqueues t, deduping against in-flight work, spec.md §4.3.
func (p *Pipeline) Submit(t queue.Task) bool {
	return p.queue.Submit(t)
}

// Stats returns a snapshot of the pipeline's atomic counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		QueueSize: int64(p.queue.Len()),
		InFlight:  int64(p.queue.InFlightCount()),
		Processed: atomic.LoadInt64(&p.processed),
		CacheHits: atomic.LoadInt64(&p.cacheHits),
		AIQueries: atomic.LoadInt64(&p.aiQueries),
	}
}

// GetCookieInfo is the cache-first, LM-on-miss core-exposed
// operation, spec.md §6: blocking, used only by UI editors.
func (p *Pipeline) GetCookieInfo(ctx context.Context, name, domain string) (descriptor.Descriptor, error) {
	if d, ok, err := p.store.Resolve(name); err != nil {
		return descriptor.Descriptor{}, err
	} else if ok {
		return d, nil
	}

	if err := p.limiter.Acquire(ctx); err != nil {
		return descriptor.Descriptor{}, err
	}
	d, raw, err := p.lm.Classify(ctx, name, domain)
	if err != nil {
		return descriptor.Descriptor{}, err
	}
	if err := p.store.UpsertDescriptor(d); err != nil {
		p.log.Error("store upsert failed", "name", name, "error", err.Error())
	}
	if err := p.store.CacheAIResponse(name, domain, raw); err != nil {
		p.log.Error("store cache-response failed", "name", name, "error", err.Error())
	}
	return d, nil
}

// GetCookieInfoCached never blocks and never calls the LM, spec.md §6.
func (p *Pipeline) GetCookieInfoCached(name string) (descriptor.Descriptor, bool) {
	d, ok, err := p.store.Resolve(name)
	if err != nil {
		return descriptor.Descriptor{}, false
	}
	return d, ok
}

func (p *Pipeline) UpsertCookieInfo(d descriptor.Descriptor) error { return p.store.UpsertDescriptor(d) }
func (p *Pipeline) DeleteCookieInfo(name string) error             { return p.store.DeleteByName(name) }
func (p *Pipeline) ListAll() ([]descriptor.Descriptor, error)      { return p.store.ListAll() }

// Store exposes the underlying Store for callers (the httpapi layer)
// that need pattern registration or field updates beyond this
// package's core-exposed surface.
func (p *Pipeline) Store() *store.Store { return p.store }
