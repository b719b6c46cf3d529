package requestlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	StatusReceived = "received"
	StatusOK       = "ok"
	StatusFailed   = "failed"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Entry struct {
	ID          string `json:"id"`
	Subject     string `json:"subject,omitempty"`
	ProfileJSON string `json:"profile"`
	Status      string `json:"status"`
	ResultJSON  string `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// Append records an incoming profile and returns the new entry id.
func (r *Repo) Append(ctx context.Context, subject, profileJSON string) (string, error) {
	id := uuid.NewString()
	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO prediction_requests (id, subject, profile_json, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		id, subject, profileJSON, StatusReceived, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repo) Complete(ctx context.Context, id, resultJSON string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE prediction_requests SET status=$1, result_json=$2, updated_at=$3 WHERE id=$4`,
		StatusOK, resultJSON, time.Now().Unix(), id)
	return err
}

func (r *Repo) Fail(ctx context.Context, id, msg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE prediction_requests SET status=$1, error=$2, updated_at=$3 WHERE id=$4`,
		StatusFailed, msg, time.Now().Unix(), id)
	return err
}

// Recent lists the newest entries first, at most 200. An empty subject lists
// everyone's.
func (r *Repo) Recent(ctx context.Context, subject string, limit int) ([]Entry, error) {
	switch {
	case limit <= 0:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject, profile_json, status, result_json, error, created_at, updated_at
		   FROM prediction_requests
		  WHERE ($1 = '' OR subject = $1)
		  ORDER BY created_at DESC, id
		  LIMIT $2`,
		subject, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Subject, &e.ProfileJSON, &e.Status, &e.ResultJSON, &e.Error, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
