package driven

import (
	"context"

	"github.com/prshepherd/prshepherd/internal/domain/model"
)

// SessionStore defines the driven port for session persistence. Sessions are
// written behind the convergence loop for the status API and operator audit;
// the loop itself never reads them back.
type SessionStore interface {
	// SaveSession persists a session summary with its fix log and
	// escalations, returning the assigned row ID.
	SaveSession(ctx context.Context, s model.SessionSummary) (int64, error)

	// GetSession returns one stored session or nil if absent.
	GetSession(ctx context.Context, id int64) (*model.SessionSummary, error)

	// ListSessions returns all stored sessions, most recent first.
	ListSessions(ctx context.Context) ([]model.SessionSummary, error)
}
