// Package sqlite keeps the chat log in a local SQLite database, for
// deployments without the remote logging service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/parley/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	message_id   TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	exchange     TEXT NOT NULL,
	message_type TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_session ON messages(session_id, created_at);
CREATE TABLE IF NOT EXISTS sessions (
	session_id        TEXT PRIMARY KEY,
	created_at        TEXT,
	ended_at          TEXT,
	user_name         TEXT,
	user_email        TEXT,
	user_role         TEXT,
	data_user_consent INTEGER NOT NULL DEFAULT 0,
	origin            TEXT,
	application_data  TEXT,
	metadata          TEXT
);
CREATE TABLE IF NOT EXISTS tickets (
	ticket_id  TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	data       TEXT
);
CREATE TABLE IF NOT EXISTS feedback (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	feedback       TEXT NOT NULL,
	feedback_stage TEXT,
	data           TEXT
);`

// ChatLog implements ports.ChatLog on SQLite.
type ChatLog struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway log.
func Open(ctx context.Context, path string) (*ChatLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &ChatLog{db: db}, nil
}

// Close closes the database.
func (c *ChatLog) Close() error {
	return c.db.Close()
}

// SaveMessages inserts the records in one transaction. Re-saving a message id is a no-op.
func (c *ChatLog) SaveMessages(ctx context.Context, msgs []domain.MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO messages (message_id, session_id, created_at, exchange, message_type) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if _, err := stmt.ExecContext(ctx, m.MessageID, m.SessionID, m.CreatedAt.UTC().Format(time.RFC3339Nano), m.Exchange, string(m.MessageType)); err != nil {
			return fmt.Errorf("insert message %s: %w", m.MessageID, err)
		}
	}
	return tx.Commit()
}

// SaveSession upserts the session summary.
func (c *ChatLog) SaveSession(ctx context.Context, rec domain.SessionRecord) error {
	app, err := json.Marshal(rec.ApplicationData)
	if err != nil {
		return fmt.Errorf("marshal application data: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (session_id, created_at, ended_at, user_name, user_email, user_role, data_user_consent, origin, application_data, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.CreatedAt, rec.EndedAt, rec.UserName, rec.UserEmail, rec.UserRole,
		rec.DataUserConsent, rec.Origin, string(app), rec.Metadata)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.SessionID, err)
	}
	return nil
}

// SaveTicket records a raised ticket.
func (c *ChatLog) SaveTicket(ctx context.Context, rec domain.TicketRecord) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tickets (ticket_id, session_id, data) VALUES (?, ?, ?)`,
		rec.TicketID, rec.SessionID, rec.Data)
	if err != nil {
		return fmt.Errorf("insert ticket %s: %w", rec.TicketID, err)
	}
	return nil
}

// SaveFeedback appends a feedback entry.
func (c *ChatLog) SaveFeedback(ctx context.Context, rec domain.FeedbackRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO feedback (session_id, created_at, feedback, feedback_stage, data) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, created.UTC().Format(time.RFC3339Nano), rec.Feedback, rec.FeedbackStage, rec.Data)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// Messages returns the stored transcript of a session in creation order.
func (c *ChatLog) Messages(ctx context.Context, sessionID string) ([]domain.MessageRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT message_id, session_id, created_at, exchange, message_type FROM messages WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []domain.MessageRecord
	for rows.Next() {
		var (
			m       domain.MessageRecord
			created string
			role    string
		)
		if err := rows.Scan(&m.MessageID, &m.SessionID, &created, &m.Exchange, &role); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		m.MessageType = domain.Role(role)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// Session returns a stored summary or domain.ErrSessionNotFound.
func (c *ChatLog) Session(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	var (
		rec                               domain.SessionRecord
		created, ended, name, email, role sql.NullString
		origin, app, meta                 sql.NullString
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT session_id, created_at, ended_at, user_name, user_email, user_role, data_user_consent, origin, application_data, metadata FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&rec.SessionID, &created, &ended, &name, &email, &role, &rec.DataUserConsent, &origin, &app, &meta)
	if err == sql.ErrNoRows {
		return rec, domain.ErrSessionNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("query failed: %w", err)
	}
	rec.CreatedAt, rec.EndedAt = created.String, ended.String
	rec.UserName, rec.UserEmail, rec.UserRole = name.String, email.String, role.String
	rec.Origin, rec.Metadata = origin.String, meta.String
	if app.Valid && app.String != "" && app.String != "null" {
		if err := json.Unmarshal([]byte(app.String), &rec.ApplicationData); err != nil {
			return rec, fmt.Errorf("decode application data: %w", err)
		}
	}
	return rec, nil
}

// Tickets returns the tickets raised by a session.
func (c *ChatLog) Tickets(ctx context.Context, sessionID string) ([]domain.TicketRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT session_id, data, ticket_id FROM tickets WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []domain.TicketRecord
	for rows.Next() {
		var t domain.TicketRecord
		var data sql.NullString
		if err := rows.Scan(&t.SessionID, &data, &t.TicketID); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		t.Data = data.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// FeedbackCount counts the feedback entries of a session.
func (c *ChatLog) FeedbackCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
