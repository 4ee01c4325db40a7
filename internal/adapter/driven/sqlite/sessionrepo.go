package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prshepherd/prshepherd/internal/domain/model"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port interface.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo backed by the given DB.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// SaveSession persists a session with its fix log and escalations in a
// single transaction and returns the assigned row ID.
func (r *SessionRepo) SaveSession(ctx context.Context, s model.SessionSummary) (int64, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const insertSession = `
		INSERT INTO sessions (target, url, state, iterations, summary, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := tx.ExecContext(ctx, insertSession,
		s.Target, s.URL, string(s.State), s.Iterations, s.Summary,
		formatTime(s.StartedAt), formatTime(s.EndedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert session for %s: %w", s.Target, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session insert id: %w", err)
	}

	const insertFix = `
		INSERT INTO session_fixes (session_id, path, tool, comment_url, applied_at)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, fix := range s.Fixes {
		if _, err := tx.ExecContext(ctx, insertFix,
			id, fix.Path, fix.Tool, fix.CommentURL, formatTime(fix.AppliedAt),
		); err != nil {
			return 0, fmt.Errorf("insert fix %s for session %d: %w", fix.Path, id, err)
		}
	}

	const insertEscalation = `
		INSERT INTO session_escalations (session_id, comment_id, commenter, location, comment_url, posted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, esc := range s.Escalations {
		if _, err := tx.ExecContext(ctx, insertEscalation,
			id, esc.CommentID, esc.Commenter, esc.Location, esc.CommentURL, formatTime(esc.PostedAt),
		); err != nil {
			return 0, fmt.Errorf("insert escalation %d for session %d: %w", esc.CommentID, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit session for %s: %w", s.Target, err)
	}

	return id, nil
}

// GetSession returns one stored session with its fix log and escalations,
// or nil if absent.
func (r *SessionRepo) GetSession(ctx context.Context, id int64) (*model.SessionSummary, error) {
	const query = `
		SELECT id, target, url, state, iterations, summary, started_at, ended_at
		FROM sessions
		WHERE id = ?
	`

	row := r.db.Reader.QueryRowContext(ctx, query, id)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query session %d: %w", id, err)
	}

	if err := r.loadChildren(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}

// ListSessions returns all stored sessions with their fix logs and
// escalations, most recent first.
func (r *SessionRepo) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	const query = `
		SELECT id, target, url, state, iterations, summary, started_at, ended_at
		FROM sessions
		ORDER BY id DESC
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.SessionSummary
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	for i := range sessions {
		if err := r.loadChildren(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

// loadChildren populates the fix log and escalations for a session.
func (r *SessionRepo) loadChildren(ctx context.Context, s *model.SessionSummary) error {
	const fixQuery = `
		SELECT path, tool, comment_url, applied_at
		FROM session_fixes
		WHERE session_id = ?
		ORDER BY id
	`

	fixRows, err := r.db.Reader.QueryContext(ctx, fixQuery, s.ID)
	if err != nil {
		return fmt.Errorf("query fixes for session %d: %w", s.ID, err)
	}
	defer fixRows.Close()

	for fixRows.Next() {
		var fix model.FixRecord
		var appliedAt string
		if err := fixRows.Scan(&fix.Path, &fix.Tool, &fix.CommentURL, &appliedAt); err != nil {
			return fmt.Errorf("scan fix: %w", err)
		}
		if fix.AppliedAt, err = parseTime(appliedAt); err != nil {
			return fmt.Errorf("parse applied_at: %w", err)
		}
		s.Fixes = append(s.Fixes, fix)
	}
	if err := fixRows.Err(); err != nil {
		return fmt.Errorf("iterate fixes: %w", err)
	}

	const escQuery = `
		SELECT comment_id, commenter, location, comment_url, posted_at
		FROM session_escalations
		WHERE session_id = ?
		ORDER BY id
	`

	escRows, err := r.db.Reader.QueryContext(ctx, escQuery, s.ID)
	if err != nil {
		return fmt.Errorf("query escalations for session %d: %w", s.ID, err)
	}
	defer escRows.Close()

	for escRows.Next() {
		var esc model.EscalationRecord
		var postedAt string
		if err := escRows.Scan(&esc.CommentID, &esc.Commenter, &esc.Location, &esc.CommentURL, &postedAt); err != nil {
			return fmt.Errorf("scan escalation: %w", err)
		}
		if esc.PostedAt, err = parseTime(postedAt); err != nil {
			return fmt.Errorf("parse posted_at: %w", err)
		}
		s.Escalations = append(s.Escalations, esc)
	}
	if err := escRows.Err(); err != nil {
		return fmt.Errorf("iterate escalations: %w", err)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*model.SessionSummary, error) {
	var s model.SessionSummary
	var state, startedAt, endedAt string

	err := sc.Scan(&s.ID, &s.Target, &s.URL, &state, &s.Iterations, &s.Summary, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	s.State = model.SessionState(state)

	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if s.EndedAt, err = parseTime(endedAt); err != nil {
		return nil, fmt.Errorf("parse ended_at: %w", err)
	}

	return &s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
