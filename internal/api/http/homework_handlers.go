package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	auth "github.com/bloomday/bloomday-homework/internal/auth/middleware"
	"github.com/bloomday/bloomday-homework/internal/homework"
	"github.com/bloomday/bloomday-homework/internal/rbac"
	"github.com/bloomday/bloomday-homework/internal/submit"
)

// POST /homeworks (teacher)
func UpsertHomeworkHandler(store homework.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var h homework.Homework
		if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if h.ChildID == "" || h.Title == "" {
			http.Error(w, "child_id and title required", 400)
			return
		}
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		if err := store.PutHomework(h); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(h)
	}
}

// POST /children (teacher)
func PutChildHandler(store homework.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c homework.Child
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if c.ParentID == "" || c.Name == "" {
			http.Error(w, "parent_id and name required", 400)
			return
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if err := store.PutChild(r.Context(), c); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(c)
	}
}

// GET /homeworks/for-parent/{parentID}?child_id=
// Parents only ever see their own set; teachers/admins may pass any id.
func ForParentHandler(store homework.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID := chi.URLParam(r, "parentID")
		role := rbac.RoleFromContext(r.Context())
		if role != "admin" && role != "teacher" {
			parentID = auth.SubjectFromContext(r.Context())
		}
		childID := strings.TrimSpace(r.URL.Query().Get("child_id"))
		set, err := store.ForParent(r.Context(), parentID, childID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}
}

// POST /homeworks/{homeworkID}/complete
// Best-effort: the record is queued for background persistence and failure
// is never surfaced here.
func CompleteHomeworkHandler(co *submit.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "homeworkID")
		var c homework.Completion
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		c.HomeworkID = id
		if c.CompletedAt == 0 {
			c.CompletedAt = time.Now().Unix()
		}
		co.AutoSave(c)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
	}
}

// POST /homeworks/submit
func SubmitHomeworkHandler(co *submit.Coordinator, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submit.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.ParentID == "" {
			req.ParentID = auth.SubjectFromContext(r.Context())
		}
		err := co.Submit(r.Context(), req)
		switch {
		case err == nil:
			hub.Controller(req.ParentID).MarkSubmitted(req.HomeworkID)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "submitted"})
		case errors.Is(err, submit.ErrInFlight):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, submit.ErrNothingToSubmit), errors.Is(err, submit.ErrAlreadySubmitted):
			http.Error(w, err.Error(), 400)
		default:
			http.Error(w, err.Error(), 500)
		}
	}
}

// GET /sync/status exposes the last auto-save sync state.
func SyncStatusHandler(co *submit.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		last, err := co.LastSync()
		out := map[string]any{"last_sync": last.Unix()}
		if last.IsZero() {
			out["last_sync"] = 0
		}
		if err != nil {
			out["last_error"] = err.Error()
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
