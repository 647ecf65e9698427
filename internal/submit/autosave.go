package submit

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bloomday/bloomday-homework/internal/homework"
)

const (
	defaultQueueSize   = 64
	defaultSaveRetries = 3
	defaultBackoff     = 2 * time.Second
)

type SaverOption func(*AutoSaver)

func WithQueueSize(n int) SaverOption {
	return func(a *AutoSaver) {
		if n > 0 {
			a.queueSize = n
		}
	}
}

func WithRetry(attempts int, backoff time.Duration) SaverOption {
	return func(a *AutoSaver) {
		if attempts > 0 {
			a.retries = attempts
		}
		a.backoff = backoff
	}
}

// AutoSaver persists in-progress completion records in the background.
// Auto-save is best-effort: enqueueing never blocks, retries are bounded,
// and failures are logged and swallowed so they can never stall or fail the
// interactive flow.
type AutoSaver struct {
	store     Store
	now       Clock
	queueSize int
	retries   int
	backoff   time.Duration

	queue chan homework.Completion
	done  chan struct{}
	wg    sync.WaitGroup

	mu       sync.Mutex
	lastSync time.Time
	lastErr  error
	closed   bool
}

func NewAutoSaver(store Store, now Clock, opts ...SaverOption) *AutoSaver {
	if now == nil {
		now = time.Now
	}
	a := &AutoSaver{
		store:     store,
		now:       now,
		queueSize: defaultQueueSize,
		retries:   defaultSaveRetries,
		backoff:   defaultBackoff,
	}
	for _, o := range opts {
		o(a)
	}
	a.queue = make(chan homework.Completion, a.queueSize)
	a.done = make(chan struct{})
	go a.run()
	return a
}

// Enqueue hands a completion record to the background worker. A full queue
// drops the record rather than block the caller. The lock spans the send so
// Close cannot close the queue between the closed check and the send.
func (a *AutoSaver) Enqueue(rec homework.Completion) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.wg.Add(1)
	select {
	case a.queue <- rec:
	default:
		a.wg.Done()
		log.Printf("autosave: queue full, dropping completion for homework %s", rec.HomeworkID)
	}
}

// Flush blocks until every enqueued record has been processed.
func (a *AutoSaver) Flush() { a.wg.Wait() }

// LastSync reports the time of the last successful save and the last
// terminal save error, if any.
func (a *AutoSaver) LastSync() (time.Time, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSync, a.lastErr
}

// Close stops the worker after draining pending records.
func (a *AutoSaver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()
	close(a.queue)
	<-a.done
}

func (a *AutoSaver) run() {
	defer close(a.done)
	for rec := range a.queue {
		a.save(rec)
		a.wg.Done()
	}
}

func (a *AutoSaver) save(rec homework.Completion) {
	var err error
	for attempt := 1; attempt <= a.retries; attempt++ {
		err = a.store.SaveCompletion(context.Background(), rec)
		if err == nil {
			a.mu.Lock()
			a.lastSync = a.now()
			a.lastErr = nil
			a.mu.Unlock()
			return
		}
		if attempt < a.retries && a.backoff > 0 {
			time.Sleep(a.backoff)
		}
	}
	// swallowed: auto-save must never surface to the learner
	log.Printf("autosave: giving up on homework %s after %d attempts: %v", rec.HomeworkID, a.retries, err)
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
}
