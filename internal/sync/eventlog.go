package syncx

import (
	"context"
	"database/sql"
	"time"
)

// Event is one append-only record of a domain event, e.g. HomeworkSubmitted
// or ActivityCompleted.
type Event struct {
	Seq       int64
	SiteID    string
	Type      string
	Key       string // natural key: homeworkID
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	site := e.SiteID
	if site == "" {
		site = "local"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		site, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}
