package http

import (
	"sync"

	"github.com/bloomday/bloomday-homework/internal/homework"
	"github.com/bloomday/bloomday-homework/internal/submit"
)

// Hub holds one homework list controller per authenticated parent. The
// controller is the only owner of "which child is active"; sessions are
// reset whenever the active child changes.
type Hub struct {
	store homework.Store
	co    *submit.Coordinator

	mu          sync.Mutex
	controllers map[string]*homework.Controller // parentID -> controller
}

func NewHub(store homework.Store, co *submit.Coordinator) *Hub {
	return &Hub{
		store:       store,
		co:          co,
		controllers: map[string]*homework.Controller{},
	}
}

func (h *Hub) Controller(parentID string) *homework.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.controllers[parentID]; ok {
		return c
	}
	c := homework.NewController(h.store, parentID, h.co.AutoSave, nil)
	h.controllers[parentID] = c
	return c
}

// Drop tears a parent's controller down, e.g. at logout.
func (h *Hub) Drop(parentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.controllers, parentID)
}
