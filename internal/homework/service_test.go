package homework_test

import (
	"context"
	"testing"

	"github.com/bloomday/bloomday-homework/internal/homework"
)

func TestForParentWithoutChildFiltersByOwnership(t *testing.T) {
	ctx := context.Background()
	store := homework.NewInMemoryStore()

	_ = store.PutChild(ctx, homework.Child{ID: "c1", ParentID: "p1", Name: "Maya"})
	_ = store.PutChild(ctx, homework.Child{ID: "c9", ParentID: "p9", Name: "Zara"})
	_ = store.PutHomework(homework.Homework{ID: "h1", ChildID: "c1", Title: "Sorting"})
	_ = store.PutHomework(homework.Homework{ID: "h9", ChildID: "c9", Title: "Counting"})

	set, err := store.ForParent(ctx, "p1", "")
	if err != nil {
		t.Fatalf("for parent: %v", err)
	}
	if len(set.Children) != 1 || set.Children[0].ID != "c1" {
		t.Fatalf("want only p1's children, got %+v", set.Children)
	}
	if len(set.Homeworks) != 1 || set.Homeworks[0].ID != "h1" {
		t.Fatalf("want only p1's homework, got %+v", set.Homeworks)
	}

	// naming a foreign child explicitly must not bypass the ownership check
	set, err = store.ForParent(ctx, "p1", "c9")
	if err != nil {
		t.Fatalf("for parent with foreign child: %v", err)
	}
	if len(set.Homeworks) != 0 {
		t.Fatalf("foreign child's homework must not leak, got %+v", set.Homeworks)
	}
}

func TestSaveSubmissionUpdatesHomeworkSnapshot(t *testing.T) {
	ctx := context.Background()
	store := homework.NewInMemoryStore()
	_ = store.PutHomework(homework.Homework{ID: "h1", ChildID: "c1", Title: "Drawing"})

	err := store.SaveSubmission(ctx, homework.Submission{
		ID:               "s1",
		HomeworkID:       "h1",
		CompletionAnswer: "done together",
	})
	if err != nil {
		t.Fatalf("save submission: %v", err)
	}

	h, err := store.GetHomework("h1")
	if err != nil {
		t.Fatalf("get homework: %v", err)
	}
	if h.CompletionAnswer != "done together" {
		t.Fatalf("submission should update the homework snapshot, got %+v", h)
	}

	if err := store.SaveSubmission(ctx, homework.Submission{ID: "s2", HomeworkID: "missing"}); err == nil {
		t.Fatalf("unknown homework must be rejected")
	}
}
