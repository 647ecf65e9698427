package homework

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bloomday/bloomday-homework/internal/activity"
)

// Stats is the per-child completion aggregate. It is recomputed from the
// fetched list on every refresh, never mutated incrementally.
type Stats struct {
	Submitted  int     `json:"submitted"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

var ErrNoActiveChild = errors.New("no active child selected")

// Controller is the single place selecting which child's homework set is
// active. It instantiates the right activity session per homework type,
// degrades to a free-text completion path when the type is absent or
// unrecognized, and merges server-reported submitted status with local
// in-progress state.
type Controller struct {
	store    Store
	parentID string
	onResult func(Completion) // auto-save hook, fired once per check cycle
	now      activity.Clock

	mu       sync.Mutex
	child    Child
	set      Set
	sessions map[string]*activity.Session // homeworkID -> session
	answers  map[string]string            // homeworkID -> free-text answer
}

func NewController(store Store, parentID string, onResult func(Completion), now activity.Clock) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		store:    store,
		parentID: parentID,
		onResult: onResult,
		now:      now,
		sessions: map[string]*activity.Session{},
		answers:  map[string]string{},
	}
}

// SetActiveChild re-fetches the homework set for the child and resets all
// in-progress session state. Switching back to the same child also resets;
// sessions never survive a child change.
func (c *Controller) SetActiveChild(ctx context.Context, childID string) error {
	set, err := c.store.ForParent(ctx, c.parentID, childID)
	if err != nil {
		return fmt.Errorf("fetch homeworks for child %s: %w", childID, err)
	}
	var child Child
	for _, ch := range set.Children {
		if ch.ID == childID {
			child = ch
			break
		}
	}
	if child.ID == "" {
		return fmt.Errorf("child %s does not belong to parent %s", childID, c.parentID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.child = child
	c.set = set
	c.sessions = map[string]*activity.Session{}
	c.answers = map[string]string{}
	for _, h := range set.Homeworks {
		c.mountLocked(h)
	}
	return nil
}

// mountLocked builds the session for one homework, or leaves it on the
// manual path when there is no matching variant.
func (c *Controller) mountLocked(h Homework) {
	t, ok := activity.ParseType(h.Type)
	if !ok || len(h.Items) == 0 {
		return
	}
	hw := h
	child := c.child
	sess, err := activity.NewSession(h.ID, t, h.Items, activity.WithClock(c.now), activity.WithSink(func(res activity.Result) {
		if c.onResult == nil {
			return
		}
		c.onResult(Completion{
			HomeworkID:     hw.ID,
			ChildID:        child.ID,
			ChildName:      child.Name,
			ActivityType:   hw.Type,
			ActivityResult: &res,
			CompletedAt:    c.now().Unix(),
		})
	}))
	if err != nil {
		return
	}
	if h.Submitted {
		sess.MarkSubmitted()
	}
	c.sessions[h.ID] = sess
}

// Refresh re-fetches the active child's set. Sessions for homeworks that
// disappeared are dropped; existing in-progress sessions are kept, except
// that a homework now reported submitted locks its session.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	childID := c.child.ID
	c.mu.Unlock()
	if childID == "" {
		return ErrNoActiveChild
	}
	set, err := c.store.ForParent(ctx, c.parentID, childID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = set
	present := map[string]bool{}
	for _, h := range set.Homeworks {
		present[h.ID] = true
		sess, ok := c.sessions[h.ID]
		if !ok {
			c.mountLocked(h)
			continue
		}
		// the server may have learned of a submit from elsewhere
		if h.Submitted && !sess.Submitted() {
			sess.MarkSubmitted()
		}
	}
	for id := range c.sessions {
		if !present[id] {
			delete(c.sessions, id)
		}
	}
	return nil
}

func (c *Controller) ActiveChild() Child {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.child
}

func (c *Controller) Homeworks() []Homework {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Homework, len(c.set.Homeworks))
	copy(out, c.set.Homeworks)
	return out
}

func (c *Controller) Session(homeworkID string) (*activity.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[homeworkID]
	return s, ok
}

// SetAnswer is the manual free-text completion path for homework without a
// matching activity variant.
func (c *Controller) SetAnswer(homeworkID, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range c.set.Homeworks {
		if h.ID != homeworkID {
			continue
		}
		if h.Submitted {
			return activity.ErrSubmitted
		}
		c.answers[homeworkID] = answer
		return nil
	}
	return errors.New("homework not found")
}

func (c *Controller) Answer(homeworkID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers[homeworkID]
}

// MarkSubmitted records a confirmed remote submit in the local cache and
// locks the session.
func (c *Controller) MarkSubmitted(homeworkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, h := range c.set.Homeworks {
		if h.ID == homeworkID {
			c.set.Homeworks[i].Submitted = true
		}
	}
	if s, ok := c.sessions[homeworkID]; ok {
		s.MarkSubmitted()
	}
}

// Stats recomputes the submitted/total aggregate from the current list.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Stats{Total: len(c.set.Homeworks)}
	for _, h := range c.set.Homeworks {
		if h.Submitted {
			st.Submitted++
		}
	}
	if st.Total > 0 {
		st.Percentage = 100 * float64(st.Submitted) / float64(st.Total)
	}
	return st
}
