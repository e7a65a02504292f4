// internal/session/store.go
//
// Serenity – In-memory form session store.
//
// Context
//   Every visitor gets one contact.Controller, created on first use
//   (“mount”) and closed when the session ends (“teardown”).  Closing a
//   controller cancels any in-flight delivery and turns a late result into
//   a no-op, so a visitor who wanders off never leaks a goroutine or gets
//   an acknowledgment they cannot see.
//
//   Sessions end for one of four causes, each counted in
//   contact_form_evict_total:
//
//     capacity – the LRU is full and this was the least recently used.
//     idle     – untouched for longer than the idle TTL.
//     drop     – explicit Drop (the visitor cleared their session).
//     shutdown – Store.Close during graceful shutdown.
//
// Workflow
//   •  st := session.NewStore(factory, cfg.Contact.MaxSessions, cfg.Contact.IdleTTL)
//   •  go st.Run(ctx)             // periodic idle sweep.
//   •  ctl := st.Get(sid)         // per request.
//   •  st.Close()                 // on shutdown; waits for deliveries.
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/serenity/internal/cache"
	"github.com/yanizio/serenity/internal/contact"
	"github.com/yanizio/serenity/internal/metrics"
)

// Factory builds the controller for a new session.
type Factory func(id string) *contact.Controller

type entry struct {
	ctl  *contact.Controller
	seen time.Time
}

// Store maps session IDs to controllers.  Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	lru    *cache.LRU[string, *entry]
	ttl    time.Duration
	create Factory
	now    func() time.Time
	closed bool

	// evicted collects controllers pushed out by the LRU during Add so they
	// are closed after the lock is released.
	evicted []*contact.Controller
}

// NewStore returns a store holding at most max sessions, each expiring
// after ttl without a request.
func NewStore(create Factory, max int, ttl time.Duration) *Store {
	s := &Store{
		lru:    cache.New[string, *entry](max),
		ttl:    ttl,
		create: create,
		now:    time.Now,
	}
	s.lru.OnEvict = func(_ string, e *entry) {
		s.evicted = append(s.evicted, e.ctl)
	}
	return s
}

// Get returns the controller for id, creating it on first use.  After
// Close, Get returns a closed controller so callers need no nil checks.
func (s *Store) Get(id string) *contact.Controller {
	s.mu.Lock()
	if e, ok := s.lru.Get(id); ok {
		e.seen = s.now()
		s.mu.Unlock()
		return e.ctl
	}

	ctl := s.create(id)
	if s.closed {
		s.mu.Unlock()
		ctl.Close()
		return ctl
	}

	s.lru.Add(id, &entry{ctl: ctl, seen: s.now()})
	evicted := s.evicted
	s.evicted = nil
	s.mu.Unlock()

	metrics.ActiveForms.Inc()
	teardown(evicted, "capacity")
	zap.S().Debugw("form session mounted", "session", id)
	return ctl
}

// Lookup returns the controller for id without creating one.
func (s *Store) Lookup(id string) (*contact.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lru.Get(id)
	if !ok {
		return nil, false
	}
	e.seen = s.now()
	return e.ctl, true
}

// Drop tears down the session for id.  It reports whether one existed.
func (s *Store) Drop(id string) bool {
	s.mu.Lock()
	e, ok := s.lru.Remove(id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	teardown([]*contact.Controller{e.ctl}, "drop")
	return true
}

// Sweep tears down every session idle for longer than the TTL and returns
// how many it removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)
	var idle []*contact.Controller
	for {
		id, e, ok := s.lru.Oldest()
		if !ok || e.seen.After(cutoff) {
			break
		}
		s.lru.Remove(id)
		idle = append(idle, e.ctl)
	}
	s.mu.Unlock()

	teardown(idle, "idle")
	return len(idle)
}

// Run sweeps every quarter TTL until ctx ends.
func (s *Store) Run(ctx context.Context) {
	every := s.ttl / 4
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				zap.S().Debugw("idle form sessions swept", "count", n)
			}
		}
	}
}

// Close tears down every session and waits for their deliveries to
// return.  Get keeps working but hands out closed controllers.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	var all []*contact.Controller
	for _, e := range s.lru.Drain() {
		all = append(all, e.ctl)
	}
	s.mu.Unlock()

	teardown(all, "shutdown")
	for _, c := range all {
		c.Wait()
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func teardown(ctls []*contact.Controller, cause string) {
	for _, c := range ctls {
		c.Close()
	}
	if n := len(ctls); n > 0 {
		metrics.ActiveForms.Sub(float64(n))
		metrics.FormEvictTotal.WithLabelValues(cause).Add(float64(n))
	}
}
