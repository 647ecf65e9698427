package homework

import "github.com/bloomday/bloomday-homework/internal/activity"

// Homework is the backend-owned record; clients hold a read/write-through
// cache per child. Type is empty or unrecognized for plain free-text
// homework without an interactive activity.
type Homework struct {
	ID               string           `json:"id"`
	ChildID          string           `json:"child_id,omitempty"`
	Type             string           `json:"type,omitempty"`
	Title            string           `json:"title"`
	Instructions     string           `json:"instructions,omitempty"`
	Items            []activity.Item  `json:"items,omitempty"`
	DueDate          int64            `json:"due_date,omitempty"`
	Submitted        bool             `json:"submitted"`
	CompletionAnswer string           `json:"completion_answer,omitempty"`
	ActivityResult   *activity.Result `json:"activity_result,omitempty"`
	CreatedAt        int64            `json:"created_at,omitempty"`
}

type Child struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
	Name     string `json:"name"`
}

// Set is the payload of GET /homeworks/for-parent/{parentID}.
type Set struct {
	Homeworks []Homework `json:"homeworks"`
	Children  []Child    `json:"children"`
}

// Submission is created once per explicit user-initiated submit and never
// mutated after send. Activity variants do not upload files themselves;
// FileURL references an already-uploaded attachment.
type Submission struct {
	ID               string           `json:"id"`
	HomeworkID       string           `json:"homeworkId"`
	ParentID         string           `json:"parentId"`
	ChildID          string           `json:"childId"`
	ChildName        string           `json:"childName"`
	FileURL          string           `json:"fileURL,omitempty"`
	Comment          string           `json:"comment,omitempty"`
	CompletionAnswer string           `json:"completion_answer,omitempty"`
	ActivityResult   *activity.Result `json:"activity_result,omitempty"`
	IsInteractive    bool             `json:"isInteractive"`
	SubmittedAt      int64            `json:"submitted_at"`
}

// Completion is the best-effort in-progress record auto-saved after every
// activity check cycle, distinct from the final user-confirmed Submission.
type Completion struct {
	HomeworkID       string           `json:"homeworkId"`
	ChildID          string           `json:"childId"`
	ChildName        string           `json:"childName"`
	ActivityType     string           `json:"activity_type,omitempty"`
	CompletionAnswer string           `json:"completion_answer,omitempty"`
	ActivityResult   *activity.Result `json:"activity_result,omitempty"`
	CompletedAt      int64            `json:"timestamp"`
}
