// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"fmt"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Event kinds recorded in the journal.
const (
	KindAgentStart       = "agent-start"
	KindRoleAdded        = "role-added"
	KindRoleRemoved      = "role-removed"
	KindPermanentFailure = "permanent-failure"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	at TEXT NOT NULL,
	kind TEXT NOT NULL,
	detail TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_at ON events (at);
`

// Event is one journal entry.
type Event struct {
	ID     int64
	At     time.Time
	Kind   string
	Detail string
}

// Journal is the SQLite-backed event log. The write rate is one row
// per role transition or failure, so a single connection behind a
// mutex is plenty; a pool would buy nothing here.
type Journal struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

// Open opens (creating if needed) the journal database at path. The
// parent directory must exist.
func Open(path string) (*Journal, error) {
	conn, err := sqlite.OpenConn(path,
		sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}
	return &Journal{conn: conn}, nil
}

// Record appends an event.
func (j *Journal) Record(at time.Time, kind, detail string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := sqlitex.Execute(j.conn,
		`INSERT INTO events (at, kind, detail) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{at.UTC().Format(time.RFC3339), kind, detail},
		})
	if err != nil {
		return fmt.Errorf("recording %s event: %w", kind, err)
	}
	return nil
}

// Recent returns the most recent events, newest first.
func (j *Journal) Recent(limit int) ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var events []Event
	err := sqlitex.Execute(j.conn,
		`SELECT id, at, kind, detail FROM events ORDER BY id DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				at, err := time.Parse(time.RFC3339, stmt.ColumnText(1))
				if err != nil {
					return fmt.Errorf("event %d has bad timestamp: %w",
						stmt.ColumnInt64(0), err)
				}
				events = append(events, Event{
					ID:     stmt.ColumnInt64(0),
					At:     at,
					Kind:   stmt.ColumnText(2),
					Detail: stmt.ColumnText(3),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	return events, nil
}

// Close closes the underlying connection.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.conn.Close()
}
