package activity

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status values for a session's state machine.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "checked_success"
	StatusPartial    Status = "checked_partial"
	StatusForced     Status = "forced_submit"
	StatusCompleted  Status = "completed"
)

const (
	// forcedSubmitChecks bounds how many failed check cycles a learner sits
	// through before the result is flagged for teacher review.
	forcedSubmitChecks = 3

	// flipCooldown is the window after a mismatched memory pair during which
	// further flips are ignored, so a third flip cannot race the comparison.
	flipCooldown = 800 * time.Millisecond
)

// Side names which rendering of a memory card was flipped. Two cards match
// only when they share the item name and come from different sides.
type Side string

const (
	SideName   Side = "name"
	SideTarget Side = "target"
)

// Move is one interaction expressed independently of any input technology:
// a drop, match choice, color pick, reorder, quiz answer, or card flip.
type Move struct {
	Item  string `json:"item"`
	Value string `json:"value,omitempty"` // bucket, label, color, answer, or position index
	Side  Side   `json:"side,omitempty"`  // memory only
}

var (
	ErrSubmitted   = errors.New("session already submitted")
	ErrNotEditable = errors.New("session not editable in current state")
	ErrUnknownItem = errors.New("unknown item")
	ErrNotReopened = errors.New("session is not submitted")
)

type Clock func() time.Time

type flip struct {
	item string
	side Side
}

// Session owns the interaction state for one homework's activity. Items are
// immutable for the session's lifetime; all mutation goes through Apply,
// Check, Retry and the submitted-flag transitions.
type Session struct {
	ID         string
	HomeworkID string
	Type       Type
	Items      []Item

	mu         sync.Mutex
	status     Status
	placements map[string]string
	attempts   int // interactions, monotonic across retries
	checks     int // check cycles, drives the forced-submit policy
	submitted  bool
	last       *Result

	strategy Strategy
	sink     func(Result)
	now      Clock

	flipped   []flip
	resolveAt time.Time
}

type Option func(*Session)

// WithClock overrides the wall clock (used for the memory flip cooldown).
func WithClock(now Clock) Option { return func(s *Session) { s.now = now } }

// WithSink installs the one-shot-per-check-cycle result callback.
func WithSink(fn func(Result)) Option { return func(s *Session) { s.sink = fn } }

var defaultScorer = NewScorer()

// NewSession creates an idle session for the given homework and item set.
// It fails when no strategy exists for the type; callers fall back to the
// manual free-text completion path.
func NewSession(homeworkID string, t Type, items []Item, opts ...Option) (*Session, error) {
	strategy, ok := defaultScorer.Strategy(t)
	if !ok {
		return nil, fmt.Errorf("no activity strategy for type %q", t)
	}
	s := &Session{
		ID:         uuid.NewString(),
		HomeworkID: homeworkID,
		Type:       t,
		Items:      items,
		status:     StatusIdle,
		placements: map[string]string{},
		strategy:   strategy,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Session) item(name string) (Item, bool) {
	for _, it := range s.Items {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}

// Apply processes one move. Moves are accepted only while idle or in
// progress; a submitted session rejects everything until reopened.
func (s *Session) Apply(m Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return ErrSubmitted
	}
	if s.status != StatusIdle && s.status != StatusInProgress {
		return ErrNotEditable
	}
	if _, ok := s.item(m.Item); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, m.Item)
	}

	if s.Type == TypeMemory {
		return s.applyFlip(m)
	}

	s.attempts++
	s.status = StatusInProgress
	s.placements[m.Item] = m.Value

	if s.Type == TypeColor {
		s.autoCompleteColor()
	}
	return nil
}

// applyFlip handles the memory variant. While a mismatched pair is pending
// resolution, flips inside the cooldown window are silently ignored.
func (s *Session) applyFlip(m Move) error {
	if m.Side != SideName && m.Side != SideTarget {
		return errors.New("memory move requires a card side")
	}
	now := s.now()
	if len(s.flipped) == 2 {
		if now.Before(s.resolveAt) {
			return nil
		}
		// cooldown elapsed: the mismatched pair flips back
		s.flipped = s.flipped[:0]
	}
	if _, matched := s.placements[m.Item]; matched {
		return nil
	}
	for _, f := range s.flipped {
		if f.item == m.Item && f.side == m.Side {
			return nil
		}
	}

	s.attempts++
	s.status = StatusInProgress
	s.flipped = append(s.flipped, flip{item: m.Item, side: m.Side})
	if len(s.flipped) < 2 {
		return nil
	}

	a, b := s.flipped[0], s.flipped[1]
	if a.item == b.item && a.side != b.side {
		if it, ok := s.item(a.item); ok {
			s.placements[a.item] = it.Target
		}
		s.flipped = s.flipped[:0]
	} else {
		s.resolveAt = now.Add(flipCooldown)
	}
	return nil
}

// autoCompleteColor finishes the color variant without an explicit check
// button: once every item carries its correct color the session completes
// and emits exactly once.
func (s *Session) autoCompleteColor() {
	if len(s.placements) < len(s.Items) {
		return
	}
	res := s.strategy.Score(s.Items, s.placements)
	if res.Score != res.Total {
		return
	}
	s.checks++
	res.Attempts = s.checks
	s.last = &res
	s.status = StatusCompleted
	s.emit(res)
}

// Check runs one check cycle: placements are compared to targets and the
// result is emitted exactly once. Calling Check again in a checked state
// returns the same immutable result without re-emitting.
func (s *Session) Check() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return Result{}, ErrSubmitted
	}
	switch s.status {
	case StatusSuccess, StatusPartial, StatusForced, StatusCompleted:
		return *s.last, nil
	}

	res := s.strategy.Score(s.Items, s.placements)
	s.checks++
	res.Attempts = s.checks

	switch {
	case res.Score == res.Total:
		s.status = StatusSuccess
	case s.checks >= forcedSubmitChecks:
		// fairness policy, not an error: hand the result to the teacher
		// instead of retrying indefinitely
		res.Failed = true
		s.status = StatusForced
	default:
		s.status = StatusPartial
	}
	s.last = &res
	s.emit(res)
	return res, nil
}

// Retry clears placements but preserves the attempt and check counters.
// Only a partial verdict offers a retry.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitted {
		return ErrSubmitted
	}
	if s.status != StatusPartial {
		return ErrNotEditable
	}
	s.placements = map[string]string{}
	s.flipped = s.flipped[:0]
	s.last = nil
	s.status = StatusInProgress
	return nil
}

// MarkSubmitted flips the session read-only after a successful final submit.
func (s *Session) MarkSubmitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = true
	s.status = StatusCompleted
}

// Reopen is the explicit edit transition: it clears the submitted flag
// locally until resubmission.
func (s *Session) Reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.submitted {
		return ErrNotReopened
	}
	s.submitted = false
	s.status = StatusInProgress
	return nil
}

func (s *Session) emit(res Result) {
	if s.sink != nil {
		s.sink(res)
	}
}

// State is a read-only snapshot served over HTTP.
type State struct {
	ID         string            `json:"id"`
	HomeworkID string            `json:"homework_id"`
	Type       Type              `json:"type"`
	Status     Status            `json:"status"`
	Attempts   int               `json:"attempts"`
	Checks     int               `json:"checks"`
	AllPlaced  bool              `json:"all_placed"`
	Submitted  bool              `json:"submitted"`
	Placements map[string]string `json:"placements"`
	LastResult *Result           `json:"last_result,omitempty"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	placements := make(map[string]string, len(s.placements))
	for k, v := range s.placements {
		placements[k] = v
	}
	st := State{
		ID:         s.ID,
		HomeworkID: s.HomeworkID,
		Type:       s.Type,
		Status:     s.status,
		Attempts:   s.attempts,
		Checks:     s.checks,
		AllPlaced:  len(s.placements) == len(s.Items),
		Submitted:  s.submitted,
		Placements: placements,
	}
	if s.last != nil {
		r := *s.last
		st.LastResult = &r
	}
	return st
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Session) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}
