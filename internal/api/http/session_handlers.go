package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bloomday/bloomday-homework/internal/activity"
	auth "github.com/bloomday/bloomday-homework/internal/auth/middleware"
)

// POST /children/{childID}/select makes the child active for the calling
// parent, re-fetching homework and resetting all in-progress sessions.
func SelectChildHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		childID := chi.URLParam(r, "childID")
		ctrl := hub.Controller(auth.SubjectFromContext(r.Context()))
		if err := ctrl.SetActiveChild(r.Context(), childID); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"child":     ctrl.ActiveChild(),
			"homeworks": ctrl.Homeworks(),
			"stats":     ctrl.Stats(),
		})
	}
}

// POST /homeworks/refresh re-fetches the active child's set, keeping
// in-progress sessions and dropping ones whose homework disappeared.
func RefreshHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := hub.Controller(auth.SubjectFromContext(r.Context()))
		if err := ctrl.Refresh(r.Context()); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"homeworks": ctrl.Homeworks(),
			"stats":     ctrl.Stats(),
		})
	}
}

// GET /homeworks/stats returns the completion aggregate for the active child.
func StatsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := hub.Controller(auth.SubjectFromContext(r.Context()))
		_ = json.NewEncoder(w).Encode(ctrl.Stats())
	}
}

func sessionFor(hub *Hub, r *http.Request) (*activity.Session, bool) {
	ctrl := hub.Controller(auth.SubjectFromContext(r.Context()))
	return ctrl.Session(chi.URLParam(r, "homeworkID"))
}

// GET /homeworks/{homeworkID}/session
func SessionStateHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(hub, r)
		if !ok {
			http.Error(w, "no interactive session for homework", 404)
			return
		}
		_ = json.NewEncoder(w).Encode(sess.State())
	}
}

// POST /homeworks/{homeworkID}/moves, body: {item, value, side}
func MoveHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(hub, r)
		if !ok {
			http.Error(w, "no interactive session for homework", 404)
			return
		}
		var m activity.Move
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := sess.Apply(m); err != nil {
			http.Error(w, err.Error(), sessionErrCode(err))
			return
		}
		_ = json.NewEncoder(w).Encode(sess.State())
	}
}

// POST /homeworks/{homeworkID}/check
func CheckHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(hub, r)
		if !ok {
			http.Error(w, "no interactive session for homework", 404)
			return
		}
		res, err := sess.Check()
		if err != nil {
			http.Error(w, err.Error(), sessionErrCode(err))
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

// POST /homeworks/{homeworkID}/retry
func RetryHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(hub, r)
		if !ok {
			http.Error(w, "no interactive session for homework", 404)
			return
		}
		if err := sess.Retry(); err != nil {
			http.Error(w, err.Error(), sessionErrCode(err))
			return
		}
		_ = json.NewEncoder(w).Encode(sess.State())
	}
}

// POST /homeworks/{homeworkID}/reopen is the explicit edit transition for an
// already-submitted homework.
func ReopenHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(hub, r)
		if !ok {
			http.Error(w, "no interactive session for homework", 404)
			return
		}
		if err := sess.Reopen(); err != nil {
			http.Error(w, err.Error(), sessionErrCode(err))
			return
		}
		_ = json.NewEncoder(w).Encode(sess.State())
	}
}

// POST /homeworks/{homeworkID}/answer, body: {answer}. The manual
// free-text path for homework without an activity variant.
func AnswerHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answer string `json:"answer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		ctrl := hub.Controller(auth.SubjectFromContext(r.Context()))
		if err := ctrl.SetAnswer(chi.URLParam(r, "homeworkID"), req.Answer); err != nil {
			http.Error(w, err.Error(), sessionErrCode(err))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "saved"})
	}
}

func sessionErrCode(err error) int {
	if errors.Is(err, activity.ErrSubmitted) || errors.Is(err, activity.ErrNotEditable) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}
