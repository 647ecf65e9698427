package homework

import (
	"context"
	"errors"
	"sync"
)

type memoryStore struct {
	mu          sync.RWMutex
	homeworks   map[string]Homework
	children    map[string]Child
	submissions map[string][]Submission // homeworkID -> history
	completions map[string]Completion   // homeworkID|childID -> latest
}

func NewInMemoryStore() Store {
	return &memoryStore{
		homeworks:   map[string]Homework{},
		children:    map[string]Child{},
		submissions: map[string][]Submission{},
		completions: map[string]Completion{},
	}
}

func (m *memoryStore) PutHomework(h Homework) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.homeworks[h.ID] = h
	return nil
}

func (m *memoryStore) GetHomework(id string) (Homework, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.homeworks[id]
	if !ok {
		return Homework{}, errors.New("homework not found")
	}
	return h, nil
}

func (m *memoryStore) ForParent(_ context.Context, parentID, childID string) (Set, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := Set{Homeworks: []Homework{}, Children: []Child{}}
	for _, c := range m.children {
		if c.ParentID == parentID {
			set.Children = append(set.Children, c)
		}
	}
	for _, h := range m.homeworks {
		if !m.childOfLocked(parentID, h.ChildID) {
			continue
		}
		if childID != "" && h.ChildID != childID {
			continue
		}
		set.Homeworks = append(set.Homeworks, h)
	}
	return set, nil
}

func (m *memoryStore) childOfLocked(parentID, childID string) bool {
	c, ok := m.children[childID]
	return ok && c.ParentID == parentID
}

func (m *memoryStore) MarkSubmitted(_ context.Context, homeworkID string, submitted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.homeworks[homeworkID]
	if !ok {
		return errors.New("homework not found")
	}
	h.Submitted = submitted
	m.homeworks[homeworkID] = h
	return nil
}

func (m *memoryStore) SaveSubmission(_ context.Context, s Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.homeworks[s.HomeworkID]; !ok {
		return errors.New("homework not found")
	}
	m.submissions[s.HomeworkID] = append(m.submissions[s.HomeworkID], s)
	h := m.homeworks[s.HomeworkID]
	h.CompletionAnswer = s.CompletionAnswer
	h.ActivityResult = s.ActivityResult
	m.homeworks[s.HomeworkID] = h
	return nil
}

func (m *memoryStore) SaveCompletion(_ context.Context, c Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions[c.HomeworkID+"|"+c.ChildID] = c
	return nil
}

func (m *memoryStore) PutChild(_ context.Context, c Child) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[c.ID] = c
	return nil
}
