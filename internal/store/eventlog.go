package store

import (
	"fmt"
	"time"
)

// Directions recorded in the event log.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// EventRow is one audit-log entry.
type EventRow struct {
	ID           int64
	Conversation string
	Direction    string
	Body         string
	CreatedAt    time.Time
}

// EventLog records bridge traffic for auditing. All writes are expected
// to be best-effort from the pipeline's point of view.
type EventLog struct {
	db *DB
}

// NewEventLog creates an event log using the given database.
func NewEventLog(db *DB) *EventLog {
	return &EventLog{db: db}
}

// Record appends one entry.
func (l *EventLog) Record(conversation, direction, body string) error {
	_, err := l.db.sql.Exec(
		`INSERT INTO events (conversation, direction, body) VALUES (?, ?, ?)`,
		conversation, direction, body,
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *EventLog) Recent(limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.sql.Query(
		`SELECT id, conversation, direction, body, created_at
		 FROM events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var row EventRow
		var createdAt string
		if err := rows.Scan(&row.ID, &row.Conversation, &row.Direction, &row.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		row.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		out = append(out, row)
	}
	return out, rows.Err()
}
