package homework

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/bloomday/bloomday-homework/internal/activity"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutHomework(h Homework) error {
	ij, err := json.Marshal(h.Items)
	if err != nil {
		return err
	}
	rj, err := marshalResult(h.ActivityResult)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO homeworks (id,child_id,type,title,instructions,items_json,due_date,submitted,completion_answer,result_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET child_id=EXCLUDED.child_id, type=EXCLUDED.type, title=EXCLUDED.title,
			instructions=EXCLUDED.instructions, items_json=EXCLUDED.items_json, due_date=EXCLUDED.due_date`,
		h.ID, h.ChildID, h.Type, h.Title, h.Instructions, string(ij), h.DueDate, h.Submitted, h.CompletionAnswer, rj, time.Now().Unix())
	return err
}

func (s *SQLStore) GetHomework(id string) (Homework, error) {
	row := s.db.QueryRow(`SELECT id,child_id,type,title,instructions,items_json,due_date,submitted,completion_answer,result_json,created_at
		FROM homeworks WHERE id=$1`, id)
	return scanHomework(row)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanHomework(row rowScanner) (Homework, error) {
	var h Homework
	var ijson, rjson string
	if err := row.Scan(&h.ID, &h.ChildID, &h.Type, &h.Title, &h.Instructions, &ijson, &h.DueDate, &h.Submitted, &h.CompletionAnswer, &rjson, &h.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Homework{}, errors.New("homework not found")
		}
		return Homework{}, err
	}
	if err := json.Unmarshal([]byte(ijson), &h.Items); err != nil {
		return Homework{}, err
	}
	if rjson != "" {
		var r activity.Result
		if err := json.Unmarshal([]byte(rjson), &r); err == nil {
			h.ActivityResult = &r
		}
	}
	return h, nil
}

func (s *SQLStore) ForParent(ctx context.Context, parentID, childID string) (Set, error) {
	set := Set{Homeworks: []Homework{}, Children: []Child{}}

	rows, err := s.db.QueryContext(ctx, `SELECT id,parent_id,name FROM children WHERE parent_id=$1 ORDER BY name`, parentID)
	if err != nil {
		return Set{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Child
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name); err != nil {
			return Set{}, err
		}
		set.Children = append(set.Children, c)
	}
	if err := rows.Err(); err != nil {
		return Set{}, err
	}

	q := `SELECT h.id,h.child_id,h.type,h.title,h.instructions,h.items_json,h.due_date,h.submitted,h.completion_answer,h.result_json,h.created_at
		FROM homeworks h JOIN children c ON c.id=h.child_id
		WHERE c.parent_id=$1`
	args := []any{parentID}
	if childID != "" {
		q += ` AND h.child_id=$2`
		args = append(args, childID)
	}
	q += ` ORDER BY h.due_date, h.created_at`

	hrows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return Set{}, err
	}
	defer hrows.Close()
	for hrows.Next() {
		h, err := scanHomework(hrows)
		if err != nil {
			return Set{}, err
		}
		set.Homeworks = append(set.Homeworks, h)
	}
	return set, hrows.Err()
}

func (s *SQLStore) MarkSubmitted(ctx context.Context, homeworkID string, submitted bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE homeworks SET submitted=$1 WHERE id=$2`, submitted, homeworkID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("homework not found")
	}
	return nil
}

func (s *SQLStore) SaveSubmission(ctx context.Context, sub Submission) error {
	rj, err := marshalResult(sub.ActivityResult)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO submissions (id,homework_id,parent_id,child_id,child_name,file_url,comment,completion_answer,result_json,is_interactive,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		sub.ID, sub.HomeworkID, sub.ParentID, sub.ChildID, sub.ChildName, sub.FileURL, sub.Comment, sub.CompletionAnswer, rj, sub.IsInteractive, sub.SubmittedAt)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE homeworks SET completion_answer=$1, result_json=$2 WHERE id=$3`,
		sub.CompletionAnswer, rj, sub.HomeworkID)
	return err
}

func (s *SQLStore) SaveCompletion(ctx context.Context, c Completion) error {
	rj, err := marshalResult(c.ActivityResult)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO completions (homework_id,child_id,child_name,activity_type,completion_answer,result_json,completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (homework_id,child_id) DO UPDATE SET child_name=EXCLUDED.child_name, activity_type=EXCLUDED.activity_type,
			completion_answer=EXCLUDED.completion_answer, result_json=EXCLUDED.result_json, completed_at=EXCLUDED.completed_at`,
		c.HomeworkID, c.ChildID, c.ChildName, c.ActivityType, c.CompletionAnswer, rj, c.CompletedAt)
	return err
}

func (s *SQLStore) PutChild(ctx context.Context, c Child) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO children (id,parent_id,name) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET parent_id=EXCLUDED.parent_id, name=EXCLUDED.name`,
		c.ID, c.ParentID, c.Name)
	return err
}

func marshalResult(r *activity.Result) (string, error) {
	if r == nil {
		return "", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
