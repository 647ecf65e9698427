package homework

import "context"

type Store interface {
	PutHomework(h Homework) error
	GetHomework(id string) (Homework, error)
	// ForParent returns the homework set and children for a parent; childID
	// narrows the homework list to one child when non-empty.
	ForParent(ctx context.Context, parentID, childID string) (Set, error)

	MarkSubmitted(ctx context.Context, homeworkID string, submitted bool) error
	SaveSubmission(ctx context.Context, s Submission) error
	SaveCompletion(ctx context.Context, c Completion) error

	PutChild(ctx context.Context, c Child) error
}
