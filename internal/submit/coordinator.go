package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bloomday/bloomday-homework/internal/activity"
	"github.com/bloomday/bloomday-homework/internal/homework"
	syncx "github.com/bloomday/bloomday-homework/internal/sync"
)

// Rejection reasons surfaced to callers. These are validation outcomes,
// never sent on to the store.
var (
	ErrInFlight         = errors.New("in_progress")
	ErrNothingToSubmit  = errors.New("nothing_to_submit")
	ErrAlreadySubmitted = errors.New("already_submitted")
)

// Store is the slice of the homework store the coordinator needs.
type Store interface {
	GetHomework(id string) (homework.Homework, error)
	MarkSubmitted(ctx context.Context, homeworkID string, submitted bool) error
	SaveSubmission(ctx context.Context, s homework.Submission) error
	SaveCompletion(ctx context.Context, c homework.Completion) error
}

// EventLog appends domain events; nil disables event logging.
type EventLog interface {
	Append(ctx context.Context, e syncx.Event) error
}

type Clock func() time.Time

// Request is the final, user-initiated submission payload.
type Request struct {
	HomeworkID       string           `json:"homeworkId"`
	ParentID         string           `json:"parentId"`
	ChildID          string           `json:"childId"`
	ChildName        string           `json:"childName"`
	FileURL          string           `json:"fileURL,omitempty"`
	Comment          string           `json:"comment,omitempty"`
	CompletionAnswer string           `json:"completion_answer,omitempty"`
	ActivityResult   *activity.Result `json:"activity_result,omitempty"`
	IsInteractive    bool             `json:"isInteractive"`
}

// Coordinator guards final submission per homework and runs best-effort
// background auto-save of in-progress completions.
type Coordinator struct {
	store  Store
	events EventLog
	saver  *AutoSaver
	now    Clock

	mu       sync.Mutex
	inflight map[string]struct{} // homeworkID -> submit in flight
}

func New(store Store, events EventLog, now Clock, saverOpts ...SaverOption) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		store:    store,
		events:   events,
		saver:    NewAutoSaver(store, now, saverOpts...),
		now:      now,
		inflight: map[string]struct{}{},
	}
}

// Submit performs the final submission for one homework. At most one submit
// per homework id may be in flight; concurrent attempts are rejected with
// ErrInFlight, never queued. On store failure the optimistic submitted flag
// is rolled back and the error is surfaced; local session state is the
// caller's and is left untouched.
func (c *Coordinator) Submit(ctx context.Context, req Request) error {
	if req.HomeworkID == "" {
		return errors.New("homeworkId required")
	}
	if req.ActivityResult == nil && req.CompletionAnswer == "" && req.FileURL == "" {
		return ErrNothingToSubmit
	}

	c.mu.Lock()
	if _, busy := c.inflight[req.HomeworkID]; busy {
		c.mu.Unlock()
		return ErrInFlight
	}
	c.inflight[req.HomeworkID] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, req.HomeworkID)
		c.mu.Unlock()
	}()

	hw, err := c.store.GetHomework(req.HomeworkID)
	if err != nil {
		return err
	}
	if hw.Submitted {
		return ErrAlreadySubmitted
	}

	// optimistic flag first, rolled back if the store rejects the submission
	if err := c.store.MarkSubmitted(ctx, req.HomeworkID, true); err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	sub := homework.Submission{
		ID:               uuid.NewString(),
		HomeworkID:       req.HomeworkID,
		ParentID:         req.ParentID,
		ChildID:          req.ChildID,
		ChildName:        req.ChildName,
		FileURL:          req.FileURL,
		Comment:          req.Comment,
		CompletionAnswer: req.CompletionAnswer,
		ActivityResult:   req.ActivityResult,
		IsInteractive:    req.IsInteractive,
		SubmittedAt:      c.now().Unix(),
	}
	if err := c.store.SaveSubmission(ctx, sub); err != nil {
		if rbErr := c.store.MarkSubmitted(ctx, req.HomeworkID, false); rbErr != nil {
			log.Printf("submit: rollback of %s failed: %v", req.HomeworkID, rbErr)
		}
		return fmt.Errorf("submit homework %s: %w", req.HomeworkID, err)
	}

	c.appendEvent(ctx, "HomeworkSubmitted", sub.HomeworkID, sub)
	return nil
}

// AutoSave enqueues a best-effort completion record. It never blocks and
// never fails the interactive flow.
func (c *Coordinator) AutoSave(rec homework.Completion) {
	c.saver.Enqueue(rec)
}

// LastSync reports the auto-saver's last successful persist and last error.
func (c *Coordinator) LastSync() (time.Time, error) {
	return c.saver.LastSync()
}

// Close drains and stops the background auto-saver.
func (c *Coordinator) Close() {
	c.saver.Close()
}

func (c *Coordinator) appendEvent(ctx context.Context, typ, key string, payload any) {
	if c.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := c.events.Append(ctx, syncx.Event{Type: typ, Key: key, DataJSON: string(data)}); err != nil {
		log.Printf("submit: event append %s/%s: %v", typ, key, err)
	}
}
