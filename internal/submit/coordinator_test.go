package submit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bloomday/bloomday-homework/internal/activity"
	"github.com/bloomday/bloomday-homework/internal/homework"
	"github.com/bloomday/bloomday-homework/internal/submit"
)

/* ---------------- In-memory fake that satisfies submit.Store ---------------- */

type fakeStore struct {
	mu sync.Mutex

	homeworks map[string]homework.Homework

	submissionCalls int
	submissionErr   error
	submissionGate  chan struct{} // when set, SaveSubmission blocks until released
	started         chan struct{} // signals a SaveSubmission call began

	markCalls []bool // sequence of submitted flags written

	completionCalls int
	completionFails int           // fail this many calls before succeeding
	completionErr   error
	completionGate  chan struct{} // when set, SaveCompletion blocks until released
}

func newFakeStore() *fakeStore {
	return &fakeStore{homeworks: map[string]homework.Homework{}}
}

func (s *fakeStore) GetHomework(id string) (homework.Homework, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.homeworks[id]
	if !ok {
		return homework.Homework{}, errors.New("homework not found")
	}
	return h, nil
}

func (s *fakeStore) MarkSubmitted(_ context.Context, id string, submitted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.homeworks[id]
	if !ok {
		return errors.New("homework not found")
	}
	h.Submitted = submitted
	s.homeworks[id] = h
	s.markCalls = append(s.markCalls, submitted)
	return nil
}

func (s *fakeStore) SaveSubmission(_ context.Context, sub homework.Submission) error {
	s.mu.Lock()
	s.submissionCalls++
	gate := s.submissionGate
	started := s.started
	err := s.submissionErr
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (s *fakeStore) SaveCompletion(_ context.Context, c homework.Completion) error {
	s.mu.Lock()
	s.completionCalls++
	gate := s.completionGate
	started := s.started
	fail := s.completionFails > 0
	if fail {
		s.completionFails--
	}
	err := s.completionErr
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if fail {
		return errors.New("store unavailable")
	}
	return err
}

func seedStore() *fakeStore {
	st := newFakeStore()
	st.homeworks["42"] = homework.Homework{ID: "42", ChildID: "c1", Title: "Sort animals", Type: "sort"}
	return st
}

func request() submit.Request {
	return submit.Request{
		HomeworkID:     "42",
		ParentID:       "p1",
		ChildID:        "c1",
		ChildName:      "Maya",
		IsInteractive:  true,
		ActivityResult: &activity.Result{Score: 4, Total: 4, Percentage: 100, Attempts: 1},
	}
}

/* ------------------------------------------ Tests ------------------------------------------ */

func TestSubmitHappyPath(t *testing.T) {
	st := seedStore()
	co := submit.New(st, nil, time.Now)
	defer co.Close()

	if err := co.Submit(context.Background(), request()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.submissionCalls != 1 {
		t.Fatalf("want 1 SaveSubmission call, got %d", st.submissionCalls)
	}
	h, _ := st.GetHomework("42")
	if !h.Submitted {
		t.Fatalf("homework should be marked submitted")
	}
}

func TestSubmitRejectsConcurrentForSameHomework(t *testing.T) {
	st := seedStore()
	st.submissionGate = make(chan struct{})
	st.started = make(chan struct{}, 1)
	co := submit.New(st, nil, time.Now)
	defer co.Close()

	firstDone := make(chan error, 1)
	go func() { firstDone <- co.Submit(context.Background(), request()) }()
	<-st.started // first submit is now inside the store call

	if err := co.Submit(context.Background(), request()); !errors.Is(err, submit.ErrInFlight) {
		t.Fatalf("want in_progress rejection, got %v", err)
	}

	close(st.submissionGate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submit should succeed: %v", err)
	}
	if st.submissionCalls != 1 {
		t.Fatalf("rejected submit must not reach the store, calls=%d", st.submissionCalls)
	}
}

func TestSubmitRollsBackOptimisticFlagOnStoreFailure(t *testing.T) {
	st := seedStore()
	st.submissionErr = errors.New("boom")
	co := submit.New(st, nil, time.Now)
	defer co.Close()

	err := co.Submit(context.Background(), request())
	if err == nil {
		t.Fatalf("expected surfaced store error")
	}
	h, _ := st.GetHomework("42")
	if h.Submitted {
		t.Fatalf("optimistic flag must be rolled back")
	}
	want := []bool{true, false}
	if len(st.markCalls) != 2 || st.markCalls[0] != want[0] || st.markCalls[1] != want[1] {
		t.Fatalf("want optimistic set then rollback, got %v", st.markCalls)
	}
}

func TestSubmitRejectsEmptyPayload(t *testing.T) {
	st := seedStore()
	co := submit.New(st, nil, time.Now)
	defer co.Close()

	req := submit.Request{HomeworkID: "42", ChildID: "c1"}
	if err := co.Submit(context.Background(), req); !errors.Is(err, submit.ErrNothingToSubmit) {
		t.Fatalf("want nothing_to_submit, got %v", err)
	}
	if st.submissionCalls != 0 {
		t.Fatalf("validation rejections never reach the store")
	}
}

func TestSubmitAcceptsAttachmentOnly(t *testing.T) {
	st := seedStore()
	co := submit.New(st, nil, time.Now)
	defer co.Close()

	req := submit.Request{HomeworkID: "42", ChildID: "c1", FileURL: "file:///data/uploads/a.png"}
	if err := co.Submit(context.Background(), req); err != nil {
		t.Fatalf("attachment-only submit should pass: %v", err)
	}
}

func TestSubmitRejectsAlreadySubmitted(t *testing.T) {
	st := seedStore()
	co := submit.New(st, nil, time.Now)
	defer co.Close()

	if err := co.Submit(context.Background(), request()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := co.Submit(context.Background(), request()); !errors.Is(err, submit.ErrAlreadySubmitted) {
		t.Fatalf("want already_submitted, got %v", err)
	}
	if st.submissionCalls != 1 {
		t.Fatalf("second submit must not reach the store")
	}
}
