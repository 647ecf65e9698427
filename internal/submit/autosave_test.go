package submit_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bloomday/bloomday-homework/internal/homework"
	"github.com/bloomday/bloomday-homework/internal/submit"
)

func completion() homework.Completion {
	return homework.Completion{
		HomeworkID:   "42",
		ChildID:      "c1",
		ChildName:    "Maya",
		ActivityType: "sort",
		CompletedAt:  time.Now().Unix(),
	}
}

func TestAutoSaveRetriesUntilSuccess(t *testing.T) {
	st := seedStore()
	st.completionFails = 2

	a := submit.NewAutoSaver(st, time.Now, submit.WithRetry(3, 0))
	defer a.Close()

	a.Enqueue(completion())
	a.Flush()

	if st.completionCalls != 3 {
		t.Fatalf("want 2 failures then success (3 calls), got %d", st.completionCalls)
	}
	last, err := a.LastSync()
	if err != nil {
		t.Fatalf("last error should clear after success: %v", err)
	}
	if last.IsZero() {
		t.Fatalf("last sync should be recorded")
	}
}

func TestAutoSaveSwallowsTerminalFailure(t *testing.T) {
	st := seedStore()
	st.completionErr = errors.New("store down")

	a := submit.NewAutoSaver(st, time.Now, submit.WithRetry(2, 0))
	defer a.Close()

	a.Enqueue(completion())
	a.Flush() // must return; the failure is logged, never surfaced

	if st.completionCalls != 2 {
		t.Fatalf("want bounded retries (2 calls), got %d", st.completionCalls)
	}
	if _, err := a.LastSync(); err == nil {
		t.Fatalf("terminal failure should be observable via LastSync")
	}
}

func TestEnqueueRacingCloseNeverPanics(t *testing.T) {
	for i := 0; i < 200; i++ {
		st := seedStore()
		a := submit.NewAutoSaver(st, time.Now, submit.WithQueueSize(1), submit.WithRetry(1, 0))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				a.Enqueue(completion())
			}
		}()
		go func() {
			defer wg.Done()
			a.Close()
		}()
		wg.Wait()

		// after close the queue is gone; enqueue must be a silent no-op
		a.Enqueue(completion())
	}
}

func TestAutoSaveNeverBlocksWhenQueueIsFull(t *testing.T) {
	st := seedStore()
	st.started = make(chan struct{}, 3)
	gate := make(chan struct{})
	st.completionGate = gate

	a := submit.NewAutoSaver(st, time.Now, submit.WithQueueSize(1), submit.WithRetry(1, 0))
	defer a.Close()

	a.Enqueue(completion()) // picked up by the worker, blocks in the store
	<-st.started
	a.Enqueue(completion()) // fills the queue
	done := make(chan struct{})
	go func() {
		a.Enqueue(completion()) // queue full: dropped, must not block
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("enqueue blocked on a full queue")
	}

	close(gate)
	a.Flush()
	if st.completionCalls != 2 {
		t.Fatalf("want 2 processed (1 dropped), got %d", st.completionCalls)
	}
}
