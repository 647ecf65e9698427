package homework_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bloomday/bloomday-homework/internal/activity"
	"github.com/bloomday/bloomday-homework/internal/homework"
)

func seedController(t *testing.T, onResult func(homework.Completion)) (homework.Store, *homework.Controller) {
	t.Helper()
	ctx := context.Background()
	store := homework.NewInMemoryStore()

	for _, c := range []homework.Child{
		{ID: "c1", ParentID: "p1", Name: "Maya"},
		{ID: "c2", ParentID: "p1", Name: "Theo"},
		{ID: "c9", ParentID: "p9", Name: "Zara"},
	} {
		if err := store.PutChild(ctx, c); err != nil {
			t.Fatalf("put child: %v", err)
		}
	}

	items := []activity.Item{
		{Name: "Fish", Target: "Water"},
		{Name: "Dog", Target: "Land"},
	}
	for _, h := range []homework.Homework{
		{ID: "h1", ChildID: "c1", Type: "sort", Title: "Sort animals", Items: items},
		{ID: "h2", ChildID: "c1", Title: "Draw your family"}, // no activity type
		{ID: "h3", ChildID: "c2", Type: "quiz", Title: "Counting quiz", Items: items},
	} {
		if err := store.PutHomework(h); err != nil {
			t.Fatalf("put homework: %v", err)
		}
	}

	return store, homework.NewController(store, "p1", onResult, nil)
}

func TestSetActiveChildBuildsSessions(t *testing.T) {
	_, ctrl := seedController(t, nil)

	if err := ctrl.SetActiveChild(context.Background(), "c1"); err != nil {
		t.Fatalf("set active child: %v", err)
	}
	if _, ok := ctrl.Session("h1"); !ok {
		t.Fatalf("sort homework should get a session")
	}
	if _, ok := ctrl.Session("h2"); ok {
		t.Fatalf("typeless homework must fall back to the manual path, not a session")
	}
	if _, ok := ctrl.Session("h3"); ok {
		t.Fatalf("other child's homework must not be mounted")
	}
	if got := len(ctrl.Homeworks()); got != 2 {
		t.Fatalf("want 2 homeworks for c1, got %d", got)
	}
}

func TestManualAnswerPath(t *testing.T) {
	store, ctrl := seedController(t, nil)
	if err := ctrl.SetActiveChild(context.Background(), "c1"); err != nil {
		t.Fatalf("set active child: %v", err)
	}
	if err := ctrl.SetAnswer("h2", "We drew a picture together"); err != nil {
		t.Fatalf("set answer: %v", err)
	}
	if got := ctrl.Answer("h2"); got != "We drew a picture together" {
		t.Fatalf("answer lost: %q", got)
	}

	// past the submitted point, the answer is read-only
	if err := store.MarkSubmitted(context.Background(), "h2", true); err != nil {
		t.Fatalf("mark submitted: %v", err)
	}
	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := ctrl.SetAnswer("h2", "edited"); !errors.Is(err, activity.ErrSubmitted) {
		t.Fatalf("submitted homework must reject manual edits, got %v", err)
	}
}

func TestChildSwitchResetsSessions(t *testing.T) {
	_, ctrl := seedController(t, nil)
	ctx := context.Background()

	if err := ctrl.SetActiveChild(ctx, "c1"); err != nil {
		t.Fatalf("select c1: %v", err)
	}
	sess, _ := ctrl.Session("h1")
	if err := sess.Apply(activity.Move{Item: "Fish", Value: "Water"}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := ctrl.SetActiveChild(ctx, "c2"); err != nil {
		t.Fatalf("select c2: %v", err)
	}
	if _, ok := ctrl.Session("h1"); ok {
		t.Fatalf("sessions must not survive a child switch")
	}

	if err := ctrl.SetActiveChild(ctx, "c1"); err != nil {
		t.Fatalf("select c1 again: %v", err)
	}
	fresh, _ := ctrl.Session("h1")
	if fresh.Attempts() != 0 {
		t.Fatalf("returning to a child starts fresh sessions, attempts=%d", fresh.Attempts())
	}
}

func TestControllerRejectsForeignChild(t *testing.T) {
	_, ctrl := seedController(t, nil)
	if err := ctrl.SetActiveChild(context.Background(), "c9"); err == nil {
		t.Fatalf("another parent's child must be rejected")
	}
}

func TestStatsRecomputedFromList(t *testing.T) {
	store, ctrl := seedController(t, nil)
	ctx := context.Background()
	if err := ctrl.SetActiveChild(ctx, "c1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	st := ctrl.Stats()
	if st.Total != 2 || st.Submitted != 0 {
		t.Fatalf("unexpected initial stats %+v", st)
	}

	if err := store.MarkSubmitted(ctx, "h1", true); err != nil {
		t.Fatalf("mark submitted: %v", err)
	}
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	st = ctrl.Stats()
	if st.Submitted != 1 || st.Percentage != 50 {
		t.Fatalf("stats should be recomputed from the fetched list, got %+v", st)
	}
}

func TestSessionEmissionsReachAutoSaveHook(t *testing.T) {
	var saved []homework.Completion
	_, ctrl := seedController(t, func(c homework.Completion) { saved = append(saved, c) })
	ctx := context.Background()
	if err := ctrl.SetActiveChild(ctx, "c1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	sess, _ := ctrl.Session("h1")
	_ = sess.Apply(activity.Move{Item: "Fish", Value: "Water"})
	_ = sess.Apply(activity.Move{Item: "Dog", Value: "Land"})
	if _, err := sess.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}

	if len(saved) != 1 {
		t.Fatalf("want one completion per check cycle, got %d", len(saved))
	}
	c := saved[0]
	if c.HomeworkID != "h1" || c.ChildID != "c1" || c.ChildName != "Maya" || c.ActivityType != "sort" {
		t.Fatalf("completion wired wrong: %+v", c)
	}
	if c.ActivityResult == nil || c.ActivityResult.Score != 2 {
		t.Fatalf("completion should carry the result: %+v", c.ActivityResult)
	}
}

func TestRefreshLocksSessionSubmittedElsewhere(t *testing.T) {
	store, ctrl := seedController(t, nil)
	ctx := context.Background()
	if err := ctrl.SetActiveChild(ctx, "c1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	sess, _ := ctrl.Session("h1")
	if err := sess.Apply(activity.Move{Item: "Fish", Value: "Water"}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// submitted from another device: the server knows, the kept session must too
	if err := store.MarkSubmitted(ctx, "h1", true); err != nil {
		t.Fatalf("mark submitted: %v", err)
	}
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := sess.Apply(activity.Move{Item: "Dog", Value: "Land"}); !errors.Is(err, activity.ErrSubmitted) {
		t.Fatalf("refresh must lock the kept session, got %v", err)
	}
	if _, err := sess.Check(); !errors.Is(err, activity.ErrSubmitted) {
		t.Fatalf("refresh must lock checks too, got %v", err)
	}
}

func TestCompletionTimestampUsesInjectedClock(t *testing.T) {
	store, _ := seedController(t, nil)
	fixed := time.Unix(1700000000, 0)
	var saved []homework.Completion
	ctrl := homework.NewController(store, "p1", func(c homework.Completion) { saved = append(saved, c) },
		func() time.Time { return fixed })
	ctx := context.Background()
	if err := ctrl.SetActiveChild(ctx, "c1"); err != nil {
		t.Fatalf("select: %v", err)
	}

	sess, _ := ctrl.Session("h1")
	_ = sess.Apply(activity.Move{Item: "Fish", Value: "Water"})
	_ = sess.Apply(activity.Move{Item: "Dog", Value: "Land"})
	if _, err := sess.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(saved) != 1 || saved[0].CompletedAt != fixed.Unix() {
		t.Fatalf("completion should carry the injected clock's time, got %+v", saved)
	}
}

func TestSubmittedHomeworkMountsLockedSession(t *testing.T) {
	store, ctrl := seedController(t, nil)
	ctx := context.Background()
	if err := store.MarkSubmitted(ctx, "h1", true); err != nil {
		t.Fatalf("mark submitted: %v", err)
	}
	if err := ctrl.SetActiveChild(ctx, "c1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	sess, _ := ctrl.Session("h1")
	if err := sess.Apply(activity.Move{Item: "Fish", Value: "Water"}); !errors.Is(err, activity.ErrSubmitted) {
		t.Fatalf("server-reported submitted state must lock the session, got %v", err)
	}
}
