package engine

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultPersistDelay is the debounce window applied to save scheduling when
// no explicit delay is configured.
const DefaultPersistDelay = 600 * time.Millisecond

const persistCallTimeout = 10 * time.Second

// AccountAPI is the persistence side of the backend consumed by the
// scheduler: one upsert call per debounce firing.
type AccountAPI interface {
	UpsertAccount(ctx context.Context, payload AccountPayload) error
}

// LookupFunc resolves the latest known value for a row id at timer-fire
// time, typically RowStore.Get.
type LookupFunc func(id string) (AccountRecord, bool)

// Scheduler converts bursty field-level edits into bounded-rate upsert
// calls, debounced per record id. Each Schedule call resets that id's timer;
// when the timer fires the latest record value is flattened and sent, which
// gives last-write-wins per key without cancelling in-flight calls. Saves
// are best-effort: a failed upsert is logged and swallowed, and the next
// edit's debounce cycle retries implicitly with the newer value.
type Scheduler struct {
	mu      sync.Mutex
	api     AccountAPI
	lookup  LookupFunc
	delay   time.Duration
	linkage func() bool
	timers  map[string]*time.Timer
	stopped bool
	logf    func(format string, args ...any)

	// wg tracks firings so tests and teardown can wait for in-flight saves.
	wg sync.WaitGroup
}

// NewScheduler builds a scheduler over the given API and lookup. A
// non-positive delay selects DefaultPersistDelay.
func NewScheduler(api AccountAPI, lookup LookupFunc, delay time.Duration) *Scheduler {
	if delay <= 0 {
		delay = DefaultPersistDelay
	}
	return &Scheduler{
		api:    api,
		lookup: lookup,
		delay:  delay,
		timers: make(map[string]*time.Timer),
		logf:   log.Printf,
	}
}

// SetLinkageContext registers the external signal for the linkage-editing
// application context. While the hook reports true the scheduler writes
// nothing; the owning collaborator persists linkage edits through its own
// flow.
func (s *Scheduler) SetLinkageContext(fn func() bool) {
	s.mu.Lock()
	s.linkage = fn
	s.mu.Unlock()
}

// Schedule queues a debounced save for the record's id. Records with a
// temporary id are skipped outright: they have no backend identity yet and
// are created by the external flow, never by a direct upsert.
func (s *Scheduler) Schedule(rec AccountRecord) {
	if IsTemporaryID(rec.ID) {
		return
	}
	id := rec.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[id]; ok && t.Stop() {
		// Reset the window: the superseded firing never runs.
		s.wg.Done()
	}
	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.fire(id, t)
	})
	s.timers[id] = t
}

// Stop cancels all pending timers without flushing them. Edits that were
// still inside their debounce window are not persisted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		if t.Stop() {
			// Timer cancelled before firing; release its wait slot.
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

// Wait blocks until every scheduled firing has either run or been
// cancelled. It exists for orderly teardown and for tests.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// fire runs when a debounce window closes. All skip conditions are
// re-evaluated here, synchronously, before any network call.
func (s *Scheduler) fire(id string, t *time.Timer) {
	s.mu.Lock()
	if s.timers[id] == t {
		delete(s.timers, id)
	}
	if s.stopped {
		s.mu.Unlock()
		return
	}
	linkage := s.linkage
	s.mu.Unlock()

	if IsTemporaryID(id) {
		return
	}
	if linkage != nil && linkage() {
		return
	}
	rec, ok := s.lookup(id)
	if !ok {
		// Row deleted while the save was pending; nothing to persist.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistCallTimeout)
	defer cancel()
	if err := s.api.UpsertAccount(ctx, FlattenRecord(rec)); err != nil {
		// Best effort: local state stays authoritative in memory and the
		// next edit's debounce cycle will carry the newer value.
		s.logf("engine: save account %s failed: %v", id, err)
	}
}
